// Package profile edits user profiles and manages their avatar images.
package profile

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"finder/internal/domain"
	"finder/internal/forms"
	"finder/internal/store"

	"github.com/sirupsen/logrus"
)

// Upload is a picture submitted with the profile form
type Upload struct {
	Filename string    // Client-side name, only its extension is kept
	Content  io.Reader // Raw image bytes
}

// Editor applies profile form edits
type Editor struct {
	store  store.Store
	images ImageStore
}

func NewEditor(s store.Store, images ImageStore) *Editor {
	return &Editor{store: s, images: images}
}

// Images exposes the avatar store, for URL building
func (e *Editor) Images() ImageStore {
	return e.images
}

// LoadForEdit copies the profile into its editable form
func LoadForEdit(p *domain.Profile) forms.ProfileForm {
	return forms.ProfileFormFrom(p)
}

// ApplyEdit overwrites every editable field from the validated form, replaces
// the avatar when a picture was uploaded and commits once.
func (e *Editor) ApplyEdit(ctx context.Context, form forms.ProfileForm, p *domain.Profile, upload *Upload) error {
	if err := form.CopyTo(p); err != nil {
		return fmt.Errorf("apply form: %w", err)
	}
	if upload != nil {
		if err := e.ReplaceAvatar(ctx, p, upload); err != nil {
			return err
		}
	}
	if err := e.store.SaveProfile(ctx, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id":     p.UserID,
		"profile_pic": p.ProfilePic,
	}).Info("Profile updated")
	return nil
}

// ReplaceAvatar stores a resized copy of the upload under a fresh random name,
// removes the previous picture unless it is the shared default, and points the
// profile at the new file. The caller commits the profile afterwards.
func (e *Editor) ReplaceAvatar(ctx context.Context, p *domain.Profile, upload *Upload) error {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	data, contentType, err := Thumbnail(upload.Content, ext)
	if err != nil {
		return err
	}

	name, err := randomName(ext)
	if err != nil {
		return err
	}
	if err := e.images.Put(ctx, name, data, contentType); err != nil {
		return fmt.Errorf("store avatar: %w", err)
	}

	if old := p.ProfilePic; !p.HasDefaultAvatar() {
		if err := e.images.Remove(ctx, old); err != nil {
			// The new picture is in place; a stale file is only wasted space
			logrus.WithFields(logrus.Fields{
				"user_id": p.UserID,
				"file":    old,
				"error":   err.Error(),
			}).Warn("Failed to remove previous avatar")
		}
	}

	p.ProfilePic = name
	return nil
}

// randomName is 128 random bits in hex plus ext
func randomName(ext string) (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("random avatar name: %w", err)
	}
	return hex.EncodeToString(b[:]) + ext, nil
}
