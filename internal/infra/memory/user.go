package memory

import (
	"context"
	"sort"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	repo "github.com/rs-labo46/ecshop/internal/repository"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ex := range r.s.st.users {
		if ex.Email == user.Email {
			return repo.ErrConflict
		}
	}
	now := r.s.now()
	user.ID = r.s.st.next("users")
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.st.users[user.ID] = *user
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, userID int64) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	u, ok := r.s.st.users[userID]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	for _, u := range r.s.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

type auditLogRepo struct {
	s *Store
}

func (r *auditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.ID = r.s.st.next("audit_logs")
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.s.now()
	}
	r.s.st.auditLogs = append(r.s.st.auditLogs, log)
	return nil
}

func (r *auditLogRepo) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matched := []model.AuditLog{}
	for _, l := range r.s.st.auditLogs {
		if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
			continue
		}
		if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
			continue
		}
		if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo) {
			continue
		}
		matched = append(matched, l)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}
