package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog/log"

	"github.com/wagateway/gateway-server-go/internal/model"
)

// Conn is the subset of *ftp.ServerConn used for uploads.
type Conn interface {
	Login(user, password string) error
	MakeDir(path string) error
	ChangeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

type DialFunc func(ctx context.Context, addr string, timeout time.Duration) (Conn, error)

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
	return ftp.Dial(addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
}

type FTPConfig struct {
	Addr      string
	User      string
	Password  string
	PublicURL string
	Root      string
	Timeout   time.Duration

	DocumentsDir string
	ImagesDir    string
}

// FTPStore uploads media over a fresh FTP connection per file.
type FTPStore struct {
	cfg     FTPConfig
	enabled bool
	dial    DialFunc

	disabledOnce sync.Once
}

func NewFTPStore(cfg FTPConfig, enabled bool) *FTPStore {
	return NewFTPStoreWithDialer(cfg, enabled, dialFTP)
}

func NewFTPStoreWithDialer(cfg FTPConfig, enabled bool, dial DialFunc) *FTPStore {
	cfg.Root = cleanRoot(cfg.Root)
	return &FTPStore{
		cfg:     cfg,
		enabled: enabled,
		dial:    dial,
	}
}

// cleanRoot gives the root the absolute, slash-trimmed form Dir produces,
// so PublicURL can strip it. "" and "/" mean no root.
func cleanRoot(root string) string {
	if root == "" {
		return ""
	}
	root = path.Join("/", root)
	if root == "/" {
		return ""
	}
	return root
}

// Dir returns the remote directory for a media category:
// <root>/<user>/<category dir>.
func (s *FTPStore) Dir(category model.MediaCategory) string {
	sub := s.cfg.ImagesDir
	if category == model.MediaCategoryDocument {
		sub = s.cfg.DocumentsDir
	}
	return path.Join("/", s.cfg.Root, s.cfg.User, sub)
}

// PublicURL maps a remote directory and file name to the address the web
// server exposes it under. The first occurrence of the FTP root is dropped.
func (s *FTPStore) PublicURL(dir, fileName string) string {
	rel := dir
	if s.cfg.Root != "" {
		rel = strings.Replace(rel, s.cfg.Root, "", 1)
	}
	rel = strings.TrimRight(rel, "/")
	return s.cfg.PublicURL + rel + "/" + fileName
}

// Upload stores data as dir/fileName and returns its public URL, or nil on
// any failure. The connection is always closed.
func (s *FTPStore) Upload(ctx context.Context, data []byte, fileName, dir string) *string {
	if !s.enabled {
		s.disabledOnce.Do(func() {
			log.Warn().Msg("FTP upload skipped: blob store not configured")
		})
		return nil
	}

	logger := log.With().
		Str("dir", dir).
		Str("file", fileName).
		Int("size", len(data)).
		Logger()

	start := time.Now()
	conn, err := s.dial(ctx, s.cfg.Addr, s.cfg.Timeout)
	if err != nil {
		logger.Error().Err(err).Str("addr", s.cfg.Addr).Msg("FTP dial failed")
		return nil
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			logger.Debug().Err(err).Msg("FTP quit failed")
		}
	}()

	if err := s.store(conn, data, fileName, dir); err != nil {
		logger.Error().Err(err).Msg("FTP upload failed")
		return nil
	}

	url := s.PublicURL(dir, fileName)
	logger.Info().
		Str("url", url).
		Dur("elapsed", time.Since(start)).
		Msg("media uploaded")
	return &url
}

func (s *FTPStore) store(conn Conn, data []byte, fileName, dir string) error {
	if err := conn.Login(s.cfg.User, s.cfg.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := ensureDir(conn, dir); err != nil {
		return err
	}
	if err := conn.Stor(fileName, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store %s: %w", fileName, err)
	}
	return nil
}

// ensureDir creates every segment of dir and changes into it. MakeDir errors
// are ignored because existing directories report one too.
func ensureDir(conn Conn, dir string) error {
	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}
	for _, segment := range strings.Split(dir, "/") {
		if segment == "" {
			continue
		}
		current = path.Join(current, segment)
		_ = conn.MakeDir(current)
	}
	if err := conn.ChangeDir(dir); err != nil {
		return fmt.Errorf("change dir %s: %w", dir, err)
	}
	return nil
}
