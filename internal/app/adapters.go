package app

import (
	"context"
	"strings"

	httpcontroller "github.com/vadim/neo-dm/internal/controller/http"
	"github.com/vadim/neo-dm/internal/domain/messaging/entity"
	"github.com/vadim/neo-dm/internal/domain/presence"
	"github.com/vadim/neo-dm/internal/httpx/ratelimit"
	"github.com/vadim/neo-dm/internal/storage"
)

// uploaderAdapter adapts storage.S3Storage to httpcontroller.AttachmentUploader
type uploaderAdapter struct {
	storage *storage.S3Storage
}

func (a *uploaderAdapter) Upload(ctx context.Context, in httpcontroller.AttachmentUploadInput) (*httpcontroller.AttachmentUploadOutput, error) {
	out, err := a.storage.Upload(ctx, storage.UploadInput{
		Reader:      in.Reader,
		ContentType: in.ContentType,
		Size:        in.Size,
		Filename:    in.Filename,
	})
	if err != nil {
		return nil, err
	}
	return &httpcontroller.AttachmentUploadOutput{
		URL:  out.URL,
		Key:  out.Key,
		Size: out.Size,
	}, nil
}

// limiterSweeper drops idle typing rate limiters on each sweep
type limiterSweeper struct {
	pool *ratelimit.Pool
}

func (s limiterSweeper) Sweep(context.Context) (int, error) {
	s.pool.Cleanup()
	return 0, nil
}

// sweepers runs the presence sweep followed by limiter cleanup.
// Only presence evictions are counted.
type sweepers struct {
	typing  *presence.Store
	limiter limiterSweeper
}

func (s sweepers) Sweep(ctx context.Context) (int, error) {
	n, err := s.typing.Sweep(ctx)
	if err != nil {
		return 0, err
	}
	_, _ = s.limiter.Sweep(ctx)
	return n, nil
}

// parseDevUsers turns "id:name" pairs into directory entries; a bare id
// doubles as the name
func parseDevUsers(entries []string) []entity.User {
	users := make([]entity.User, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, found := strings.Cut(entry, ":")
		if !found {
			name = id
		}
		users = append(users, entity.User{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return users
}
