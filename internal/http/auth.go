package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wholesale/internal/domain"
	"wholesale/internal/service"
)

type signUpReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
}

// @Summary Register a customer account
// @Description New profiles start as pending and get a limited trial window until an admin approves them.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body signUpReq true "Account"
// @Success 201 {object} domain.Profile
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/signup [post]
func (s *Server) signUp(c *gin.Context) {
	var req signUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.auth.SignUp(c, req.Email, req.Password, req.FullName)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type signInReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signInResp struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *domain.Profile `json:"profile"`
}

// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param input body signInReq true "Credentials"
// @Success 200 {object} signInResp
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /auth/signin [post]
func (s *Server) signIn(c *gin.Context) {
	var req signInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, p, err := s.auth.SignIn(c, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetCookie(sessionCookie, sess.Token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, signInResp{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Profile: p})
}

// @Summary Sign out
// @Tags auth
// @Success 204
// @Router /auth/signout [post]
func (s *Server) signOut(c *gin.Context) {
	if err := s.auth.SignOut(c, sessionToken(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

// @Summary Current profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Profile
// @Failure 401 {object} map[string]string
// @Router /me [get]
func (s *Server) getMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentProfile(c))
}

type updateMeReq struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// @Summary Edit own profile
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body updateMeReq true "Profile"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} map[string]string
// @Router /me [put]
func (s *Server) updateMe(c *gin.Context) {
	var req updateMeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.profiles.UpdateOwn(c, currentProfile(c).ID, service.ProfileUpdate{
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type profileStatusReq struct {
	Status domain.ProfileStatus `json:"status" binding:"required"`
}

type profileRoleReq struct {
	Role domain.Role `json:"role" binding:"required"`
}

// @Summary List profiles
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role"
// @Param status query string false "Filter by status"
// @Success 200 {array} domain.Profile
// @Router /admin/profiles [get]
func (s *Server) listProfiles(c *gin.Context) {
	list, err := s.profiles.List(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	role, status := domain.Role(c.Query("role")), domain.ProfileStatus(c.Query("status"))
	out := make([]domain.Profile, 0, len(list))
	for _, p := range list {
		if role != "" && p.Role != role {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, p)
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Approve, reject or block a profile
// @Description Rejecting or blocking signs the profile out everywhere.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Param input body profileStatusReq true "Status"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/profiles/{id}/status [put]
func (s *Server) setProfileStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req profileStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.profiles.SetStatus(c, id, req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Change profile role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Param input body profileRoleReq true "Role"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/profiles/{id}/role [put]
func (s *Server) setProfileRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req profileRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.profiles.SetRole(c, id, req.Role)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
