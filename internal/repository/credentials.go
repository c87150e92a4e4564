package repository

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/wagateway/gateway-server-go/internal/database"
)

// CredentialRepository owns the linked-device keys of the single session.
// All methods are serialized.
type CredentialRepository interface {
	// Device loads the stored device, or a fresh unpaired one.
	Device(ctx context.Context) (*store.Device, error)
	// LinkedJID returns the paired account JID, nil when unpaired.
	LinkedJID(ctx context.Context) (*string, error)
	Persist(ctx context.Context) error
	// Wipe deletes all credential state so the next Device is unpaired.
	Wipe(ctx context.Context) error
	Close() error
}

// Opener connects to the backing database.
type Opener func() (*database.DB, error)

type credentialRepo struct {
	mu sync.Mutex

	open    Opener
	authDir string
	log     waLog.Logger

	db        *database.DB
	container *sqlstore.Container
	device    *store.Device
}

func NewCredentialRepository(open Opener, authDir string, log waLog.Logger) CredentialRepository {
	return &credentialRepo{
		open:    open,
		authDir: authDir,
		log:     log,
	}
}

func (r *credentialRepo) ensureContainer(ctx context.Context) error {
	if r.container != nil {
		return nil
	}

	db, err := r.open()
	if err != nil {
		return fmt.Errorf("open credential database: %w", err)
	}

	container := sqlstore.NewWithDB(db.DB.DB, db.Dialect, r.log)
	if err := container.Upgrade(ctx); err != nil {
		db.Close()
		return fmt.Errorf("upgrade credential schema: %w", err)
	}

	r.db = db
	r.container = container
	return nil
}

func (r *credentialRepo) Device(ctx context.Context) (*store.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureContainer(ctx); err != nil {
		return nil, err
	}

	device, err := r.container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}
	if device == nil {
		device = r.container.NewDevice()
	}

	r.device = device
	return device, nil
}

func (r *credentialRepo) LinkedJID(ctx context.Context) (*string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureContainer(ctx); err != nil {
		return nil, err
	}

	var jid string
	err := r.db.GetContext(ctx, &jid, `SELECT jid FROM whatsmeow_device LIMIT 1`)
	return HandleNotFound(&jid, err)
}

func (r *credentialRepo) Persist(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil || r.device.ID == nil {
		return nil
	}
	if err := r.device.Save(ctx); err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

// Wipe drops every stored credential. It never touches the loaded device:
// on logout whatsmeow deletes that device itself, concurrently, so the rows
// are removed through the database instead.
func (r *credentialRepo) Wipe(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.device = nil

	if err := r.ensureContainer(ctx); err != nil {
		return err
	}

	if r.db.Dialect == database.DialectSQLite {
		r.closeLocked()
		if err := os.RemoveAll(r.authDir); err != nil {
			return fmt.Errorf("remove auth dir: %w", err)
		}
		return nil
	}

	// Dependent tables cascade from whatsmeow_device.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM whatsmeow_device`); err != nil {
		return fmt.Errorf("delete device rows: %w", err)
	}
	return nil
}

func (r *credentialRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closeLocked()
}

func (r *credentialRepo) closeLocked() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.container = nil
	r.device = nil
	return err
}
