package repository

import (
	"context"
	"fmt"
	"strings"

	"exam-room/internal/domain"
	"exam-room/internal/schema"
)

type recordCredentialRepository struct {
	store *RecordStore
}

// NewCredentialRepository reads teachers from Users and students from Students.
func NewCredentialRepository(store *RecordStore) domain.CredentialRepository {
	return &recordCredentialRepository{store: store}
}

func credentialTable(role domain.Role) (table, extra string, err error) {
	switch role {
	case domain.RoleTeacher:
		return schema.TableUsers, "role", nil
	case domain.RoleStudent:
		return schema.TableStudents, "classId", nil
	default:
		return "", "", fmt.Errorf("unknown role %q", role)
	}
}

func (r *recordCredentialRepository) find(ctx context.Context, role domain.Role, username string) (*domain.Credential, error) {
	table, extra, err := credentialTable(role)
	if err != nil {
		return nil, err
	}
	recs, err := r.store.ListAll(ctx, table)
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	for _, rec := range recs {
		if strings.TrimSpace(rec["username"]) != username {
			continue
		}
		return &domain.Credential{
			Username: strings.TrimSpace(rec["username"]),
			Password: rec["password"],
			Name:     rec["name"],
			Extra:    rec[extra],
		}, nil
	}
	return nil, nil
}

func (r *recordCredentialRepository) FindTeacher(ctx context.Context, username string) (*domain.Credential, error) {
	return r.find(ctx, domain.RoleTeacher, username)
}

func (r *recordCredentialRepository) FindStudent(ctx context.Context, username string) (*domain.Credential, error) {
	return r.find(ctx, domain.RoleStudent, username)
}

func (r *recordCredentialRepository) UpdatePassword(ctx context.Context, role domain.Role, username, password string) error {
	table, _, err := credentialTable(role)
	if err != nil {
		return err
	}
	found, err := r.store.UpdateColumns(ctx, table, Record{"username": username}, func(Record) Record {
		return Record{"password": password}
	})
	if err != nil {
		return err
	}
	if !found {
		return domain.NewNotFoundError("User not found").WithContext("username", username)
	}
	return nil
}

func (r *recordCredentialRepository) ListStudentClassIDs(ctx context.Context) ([]string, error) {
	recs, err := r.store.ListAll(ctx, schema.TableStudents)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec["classId"])
	}
	return out, nil
}
