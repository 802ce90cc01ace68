// Package media stores uploaded product images on local disk and hands out
// public URLs served under /media.
package media

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// URLPrefix маршрут, под которым раздаются файлы
const URLPrefix = "/media"

// ErrUnsupportedType расширение файла не из списка изображений
var ErrUnsupportedType = errors.New("unsupported media type")

var allowedExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

type Store struct {
	dir     string
	baseURL string
}

func NewStore(dir, publicBaseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create media dir")
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save копирует r в файл со случайным именем и возвращает его публичный URL.
// Исходное имя используется только ради расширения.
func (s *Store) Save(original string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExt[ext] {
		return "", errors.Wrapf(ErrUnsupportedType, "%q", ext)
	}
	name := uuid.NewString() + ext

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "write upload")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "close upload")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", errors.Wrap(err, "store upload")
	}
	return s.URL(name), nil
}

func (s *Store) URL(name string) string {
	return s.baseURL + URLPrefix + "/" + name
}
