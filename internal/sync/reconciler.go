package sync

import (
	"errors"
	"fmt"

	"github.com/matheus3301/buddytalk/internal/failcache"
	"go.uber.org/zap"
)

// Checkpoint keys in the local_state table.
const (
	keySelectedChannel = "selection.channel"
	keySelectedUser    = "selection.user"
)

// Reconciler manages the selection checkpoint restored at startup.
type Reconciler struct {
	storage failcache.Storage
	logger  *zap.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(storage failcache.Storage, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{storage: storage, logger: logger}
}

// UpdateCheckpoint updates a checkpoint value.
func (r *Reconciler) UpdateCheckpoint(key, value string) error {
	if err := r.storage.Save(key, []byte(value)); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", key, err)
	}
	return nil
}

// GetCheckpoint retrieves a checkpoint value. A missing key yields "".
func (r *Reconciler) GetCheckpoint(key string) (string, error) {
	v, err := r.storage.Load(key)
	if errors.Is(err, failcache.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load checkpoint %s: %w", key, err)
	}
	return string(v), nil
}

// SaveSelection records the selected channel and user.
func (r *Reconciler) SaveSelection(channelID, userID string) error {
	if err := r.UpdateCheckpoint(keySelectedChannel, channelID); err != nil {
		return err
	}
	return r.UpdateCheckpoint(keySelectedUser, userID)
}

// Selection returns the last saved channel and user, empty when never saved.
func (r *Reconciler) Selection() (channelID, userID string, err error) {
	if channelID, err = r.GetCheckpoint(keySelectedChannel); err != nil {
		return "", "", err
	}
	if userID, err = r.GetCheckpoint(keySelectedUser); err != nil {
		return "", "", err
	}
	return channelID, userID, nil
}
