package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"pizza-service/internal/apperr"
	"pizza-service/internal/util"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// MaxImageSize is the largest accepted pizza photo
const MaxImageSize = 5 << 20

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Store keeps pizza photos on the local filesystem under root. Keys returned
// by SavePizzaImage are relative to root and use forward slashes.
type Store struct {
	root    string
	baseURL string
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a file store rooted at root. baseURL prefixes FullURL results.
func New(root, baseURL string) *Store {
	return &Store{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		logger:  util.GetLogger(),
	}
}

// Root returns the directory files are stored under
func (s *Store) Root() string {
	return s.root
}

func pizzaDir(pizzaID int64) string {
	return path.Join("uploads", "pizzas", fmt.Sprint(pizzaID))
}

// SavePizzaImage validates and writes a photo for pizzaID, returning its key
// uploads/pizzas/{id}/photopizza{id}_{yyyymmdd}{ext}.
func (s *Store) SavePizzaImage(pizzaID int64, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowedExt[ext]
	if !ok {
		return "", apperr.NewValidation("image", "only .jpg, .jpeg and .png files are supported")
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", apperr.Storage("read image", err)
	}
	if len(data) > MaxImageSize {
		return "", apperr.NewValidation("image", "image must not exceed 5 MB")
	}
	if len(data) == 0 {
		return "", apperr.NewValidation("image", "image is empty")
	}

	if mt := mimetype.Detect(data); !mt.Is(want) {
		return "", apperr.NewValidation("image", fmt.Sprintf("content is %s, expected %s", mt.String(), want))
	}

	key := path.Join(pizzaDir(pizzaID),
		fmt.Sprintf("photopizza%d_%s%s", pizzaID, s.now().UTC().Format("20060102"), ext))
	dst := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", apperr.Storage("create image dir", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", apperr.Storage("write image", err)
	}

	util.PizzaImagesStoredTotal.Inc()
	s.logger.Info("Pizza image stored", zap.Int64("pizza_id", pizzaID), zap.String("key", key))
	return key, nil
}

// DeletePizzaFolder removes every stored photo of pizzaID
func (s *Store) DeletePizzaFolder(pizzaID int64) error {
	dir := filepath.Join(s.root, filepath.FromSlash(pizzaDir(pizzaID)))
	if err := os.RemoveAll(dir); err != nil {
		return apperr.Storage("delete image dir", err)
	}
	return nil
}

// PrunePizzaImages removes every photo of pizzaID except keep
func (s *Store) PrunePizzaImages(pizzaID int64, keep string) error {
	dir := pizzaDir(pizzaID)
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(dir)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperr.Storage("list image dir", err)
	}

	for _, e := range entries {
		if e.IsDir() || path.Join(dir, e.Name()) == keep {
			continue
		}
		if err := s.DeleteImage(path.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// DeleteImage removes a single stored photo. Missing files are ignored.
func (s *Store) DeleteImage(key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Storage("delete image", err)
	}
	return nil
}

// FullURL turns a stored key into an absolute URL. Empty keys stay empty.
func (s *Store) FullURL(key string) string {
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
