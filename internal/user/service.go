// Package user administers the members of an event: listing, creating,
// editing, role changes and removal.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"qbank/internal/auth"
	"qbank/internal/db"
	"qbank/internal/event"
	"qbank/internal/policy"

	"golang.org/x/crypto/bcrypt"
)

const PageSize = 50

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	db     *sql.DB
	cost   int
	mailer auth.AccountMailer
}

// NewService wires the member administration. mailer may be nil, in which
// case new accounts are not notified and the temporary password is handed
// back to the caller instead.
func NewService(conn *sql.DB, bcryptCost int, mailer auth.AccountMailer) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{db: conn, cost: bcryptCost, mailer: mailer}
}

type Page struct {
	Items   []auth.User
	Page    int
	PerPage int
	Total   int
}

type AddInput struct {
	Name  string
	Email string
	Role  string
}

type UpdateInput struct {
	Name  *string
	Email *string
	Role  *string
}

type Added struct {
	User     *auth.User
	Notified bool
	// TemporaryPassword is only set when the account notice was not sent.
	TemporaryPassword string
}

func (s *Service) ListEventMembers(ctx context.Context, scope event.Scope, page int) (*Page, error) {
	if err := policy.Check(policy.CanManageUsers(scope.Actor, scope.EventID)); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_events WHERE event_id = $1`, scope.EventID).Scan(&total); err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	items, err := s.members(ctx, scope.EventID, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Page: page, PerPage: PageSize, Total: total}, nil
}

func (s *Service) GetMember(ctx context.Context, scope event.Scope, id int64) (*auth.User, error) {
	if err := policy.Check(policy.CanManageUsers(scope.Actor, scope.EventID)); err != nil {
		return nil, err
	}
	return loadMember(ctx, s.db, scope.EventID, id)
}

// AddUser creates the account with a generated password, gives it the role
// and makes it a member of the scope's event, all in one transaction. The
// account notice is sent after commit.
func (s *Service) AddUser(ctx context.Context, scope event.Scope, in AddInput) (*Added, error) {
	if err := policy.Check(policy.CanManageUsers(scope.Actor, scope.EventID)); err != nil {
		return nil, err
	}
	var roles []auth.Role
	if strings.TrimSpace(in.Role) != "" {
		role, err := s.grantable(scope.Actor, in.Role)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	var created *auth.CreatedUser
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		c, err := auth.CreateUserTx(ctx, tx, auth.NewUser{Name: in.Name, Email: in.Email, Roles: roles}, s.cost)
		if err != nil {
			return err
		}
		if err := event.AddMemberTx(ctx, tx, scope.EventID, c.User.ID); err != nil {
			return err
		}
		c.User.EventIDs = []int64{scope.EventID}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &Added{User: created.User}
	if s.mailer != nil {
		if err := s.mailer.SendAccountCreated(ctx, created.User.Email, created.User.Name, created.Password); err == nil {
			out.Notified = true
		}
	}
	if !out.Notified {
		out.TemporaryPassword = created.Password
	}
	return out, nil
}

// UpdateUser edits a member's profile. A role, when given, replaces the
// member's roles.
func (s *Service) UpdateUser(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*auth.User, error) {
	if err := policy.Check(policy.CanManageUsers(scope.Actor, scope.EventID)); err != nil {
		return nil, err
	}
	var role auth.Role
	if in.Role != nil {
		r, err := s.grantable(scope.Actor, *in.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}

	var out *auth.User
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := loadMember(ctx, tx, scope.EventID, id)
		if err != nil {
			return err
		}
		name, email := cur.Name, cur.Email
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
			if name == "" {
				return fmt.Errorf("%w: name cannot be blank", ErrInvalidInput)
			}
		}
		if in.Email != nil {
			email = strings.ToLower(strings.TrimSpace(*in.Email))
			if _, err := mail.ParseAddress(email); err != nil {
				return fmt.Errorf("%w: invalid email", ErrInvalidInput)
			}
			var taken bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, id).Scan(&taken); err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if taken {
				return auth.ErrEmailTaken
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET name = $1, email = $2, updated_at = now()
			WHERE id = $3
		`, name, email, id); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if role != "" {
			if err := syncRolesTx(ctx, tx, id, role); err != nil {
				return err
			}
		}
		out, err = auth.GetUserTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeRole replaces the member's roles with role. A member that already
// holds role is left untouched.
func (s *Service) ChangeRole(ctx context.Context, scope event.Scope, id int64, roleName string) (*auth.User, error) {
	if err := policy.Check(policy.CanManageUsers(scope.Actor, scope.EventID)); err != nil {
		return nil, err
	}
	role, err := s.grantable(scope.Actor, roleName)
	if err != nil {
		return nil, err
	}

	var out *auth.User
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := loadMember(ctx, tx, scope.EventID, id)
		if err != nil {
			return err
		}
		if cur.HasRole(role) {
			out = cur
			return nil
		}
		if err := syncRolesTx(ctx, tx, id, role); err != nil {
			return err
		}
		cur.Roles = []auth.Role{role}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser detaches the member's roles and memberships and deletes the
// account.
func (s *Service) DeleteUser(ctx context.Context, scope event.Scope, id int64) error {
	if err := policy.Check(policy.CanManageUsers(scope.Actor, scope.EventID)); err != nil {
		return err
	}
	if scope.Actor.ID == id {
		return fmt.Errorf("%w: cannot delete your own account", ErrInvalidInput)
	}
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := loadMember(ctx, tx, scope.EventID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("detach roles: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_events WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("detach events: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// grantable parses roleName and rejects roles above the actor's own.
func (s *Service) grantable(actor *auth.User, roleName string) (auth.Role, error) {
	role, err := auth.ParseRole(roleName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if role == auth.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return "", policy.ErrDenied
	}
	return role, nil
}

func loadMember(ctx context.Context, q db.DBTX, eventID, userID int64) (*auth.User, error) {
	var member bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM user_events WHERE user_id = $1 AND event_id = $2)`, userID, eventID).Scan(&member); err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, auth.ErrUserNotFound
	}
	return auth.GetUserTx(ctx, q, userID)
}

func syncRolesTx(ctx context.Context, tx *sql.Tx, userID int64, role auth.Role) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	return auth.AssignRoleTx(ctx, tx, userID, role)
}

func (s *Service) members(ctx context.Context, eventID int64, limit, offset int) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.created_at
		FROM users u
		JOIN user_events ue ON ue.user_id = u.id
		WHERE ue.event_id = $1
		ORDER BY u.name, u.id
		LIMIT $2 OFFSET $3
	`, eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	out := make([]auth.User, 0)
	index := map[int64]int{}
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan member: %w", err)
		}
		u.Roles = []auth.Role{}
		index[u.ID] = len(out)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(out))
	for _, u := range out {
		args = append(args, u.ID)
	}
	rows, err = s.db.QueryContext(ctx, `
		SELECT user_id, role
		FROM user_roles
		WHERE user_id IN (`+db.Placeholders(1, len(args))+`)
		ORDER BY role
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query member roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var role string
		if err := rows.Scan(&id, &role); err != nil {
			return nil, fmt.Errorf("scan member role: %w", err)
		}
		if i, ok := index[id]; ok {
			out[i].Roles = append(out[i].Roles, auth.Role(role))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member roles: %w", err)
	}
	return out, nil
}
