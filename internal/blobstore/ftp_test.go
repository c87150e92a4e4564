package blobstore

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagateway/gateway-server-go/internal/model"
)

type fakeConn struct {
	loginErr  error
	chdirErr  error
	storErr   error
	dirs      []string
	chdir     string
	stored    map[string][]byte
	quitCalls int
}

func (c *fakeConn) Login(user, password string) error { return c.loginErr }

func (c *fakeConn) MakeDir(path string) error {
	c.dirs = append(c.dirs, path)
	return errors.New("550 exists")
}

func (c *fakeConn) ChangeDir(path string) error {
	c.chdir = path
	return c.chdirErr
}

func (c *fakeConn) Stor(path string, r io.Reader) error {
	if c.storErr != nil {
		return c.storErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if c.stored == nil {
		c.stored = make(map[string][]byte)
	}
	c.stored[path] = data
	return nil
}

func (c *fakeConn) Quit() error {
	c.quitCalls++
	return nil
}

func testConfig() FTPConfig {
	return FTPConfig{
		Addr:         "ftp.example.com:21",
		User:         "acme",
		Password:     "secret",
		PublicURL:    "https://cdn.example.com",
		Root:         "/public_html",
		Timeout:      time.Second,
		DocumentsDir: "documentos",
		ImagesDir:    "imagem_rosto",
	}
}

func storeWith(conn *fakeConn, dialErr error) *FTPStore {
	return NewFTPStoreWithDialer(testConfig(), true, func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return conn, nil
	})
}

func TestFTPStore_Dir(t *testing.T) {
	s := storeWith(&fakeConn{}, nil)
	assert.Equal(t, "/public_html/acme/documentos", s.Dir(model.MediaCategoryDocument))
	assert.Equal(t, "/public_html/acme/imagem_rosto", s.Dir(model.MediaCategoryImage))
}

func TestFTPStore_PublicURL(t *testing.T) {
	s := storeWith(&fakeConn{}, nil)

	t.Run("drops root and trailing slash", func(t *testing.T) {
		assert.Equal(t,
			"https://cdn.example.com/acme/documentos/a.pdf",
			s.PublicURL("/public_html/acme/documentos/", "a.pdf"))
	})

	t.Run("only first root occurrence is removed", func(t *testing.T) {
		assert.Equal(t,
			"https://cdn.example.com/x/public_html/b.jpg",
			s.PublicURL("/public_html/x/public_html", "b.jpg"))
	})

	t.Run("root is normalized whatever its slashes", func(t *testing.T) {
		for _, root := range []string{"public_html", "/public_html/", "public_html/", "//public_html"} {
			cfg := testConfig()
			cfg.Root = root
			s := NewFTPStoreWithDialer(cfg, true, nil)

			dir := s.Dir(model.MediaCategoryDocument)
			assert.Equal(t, "/public_html/acme/documentos", dir, root)
			assert.Equal(t,
				"https://cdn.example.com/acme/documentos/a.pdf",
				s.PublicURL(dir, "a.pdf"), root)
		}
	})

	t.Run("empty or bare slash root keeps the full path", func(t *testing.T) {
		for _, root := range []string{"", "/"} {
			cfg := testConfig()
			cfg.Root = root
			s := NewFTPStoreWithDialer(cfg, true, nil)

			dir := s.Dir(model.MediaCategoryImage)
			assert.Equal(t, "/acme/imagem_rosto", dir, root)
			assert.Equal(t,
				"https://cdn.example.com/acme/imagem_rosto/b.jpg",
				s.PublicURL(dir, "b.jpg"), root)
		}
	})
}

func TestFTPStore_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores file and returns url", func(t *testing.T) {
		conn := &fakeConn{}
		s := storeWith(conn, nil)

		url := s.Upload(ctx, []byte("pdf-bytes"), "doc.pdf", "/public_html/acme/documentos")

		require.NotNil(t, url)
		assert.Equal(t, "https://cdn.example.com/acme/documentos/doc.pdf", *url)
		assert.Equal(t, []byte("pdf-bytes"), conn.stored["doc.pdf"])
		assert.Equal(t, []string{"/public_html", "/public_html/acme", "/public_html/acme/documentos"}, conn.dirs)
		assert.Equal(t, "/public_html/acme/documentos", conn.chdir)
		assert.Equal(t, 1, conn.quitCalls)
	})

	t.Run("returns nil when dial fails", func(t *testing.T) {
		s := storeWith(nil, errors.New("connection refused"))
		assert.Nil(t, s.Upload(ctx, []byte("x"), "a.jpg", "/public_html/acme/imagem_rosto"))
	})

	t.Run("returns nil and quits when login fails", func(t *testing.T) {
		conn := &fakeConn{loginErr: errors.New("530 login incorrect")}
		s := storeWith(conn, nil)

		assert.Nil(t, s.Upload(ctx, []byte("x"), "a.jpg", "/public_html/acme/imagem_rosto"))
		assert.Equal(t, 1, conn.quitCalls)
	})

	t.Run("returns nil and quits when store fails", func(t *testing.T) {
		conn := &fakeConn{storErr: errors.New("552 quota exceeded")}
		s := storeWith(conn, nil)

		assert.Nil(t, s.Upload(ctx, []byte("x"), "a.jpg", "/public_html/acme/imagem_rosto"))
		assert.Equal(t, 1, conn.quitCalls)
	})

	t.Run("returns nil when directory cannot be entered", func(t *testing.T) {
		conn := &fakeConn{chdirErr: errors.New("550 no such directory")}
		s := storeWith(conn, nil)

		assert.Nil(t, s.Upload(ctx, []byte("x"), "a.jpg", "/public_html/acme/imagem_rosto"))
		assert.Empty(t, conn.stored)
		assert.Equal(t, 1, conn.quitCalls)
	})

	t.Run("disabled store never dials", func(t *testing.T) {
		dialed := false
		s := NewFTPStoreWithDialer(testConfig(), false, func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
			dialed = true
			return &fakeConn{}, nil
		})

		assert.Nil(t, s.Upload(ctx, []byte("x"), "a.jpg", "/public_html/acme/imagem_rosto"))
		assert.False(t, dialed)
	})
}
