// Command admin bootstraps accounts and performs maintenance outside the HTTP
// surface.
//
//	admin make-admin -name "Ada" -email ada@example.com
//	admin make-super-admin -name "Ada" -email ada@example.com
//	admin delete-questions -yes
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"qbank/internal/app"
	"qbank/internal/app/observability"
	"qbank/internal/auth"
	"qbank/internal/db"
	"qbank/internal/question"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const usage = `usage: admin <command> [flags]

commands:
  make-admin         create a user with the admin role
  make-super-admin   create a user with the super admin role
  delete-questions   delete every question with its options and answers
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := app.LoadConfig()
	log := observability.NewLogger("qbank-admin", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.OpenPostgres(ctx, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("database error")
	}
	defer conn.Close()

	authSvc := auth.NewService(conn, auth.ServiceConfig{SessionTTL: cfg.SessionTTL, BcryptCost: cfg.BcryptCost})

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "make-admin":
		err = makeUser(ctx, authSvc, auth.RoleAdmin, cmd, args, log)
	case "make-super-admin":
		err = makeUser(ctx, authSvc, auth.RoleSuperAdmin, cmd, args, log)
	case "delete-questions":
		err = deleteQuestions(ctx, question.NewService(conn), args, log)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).WithField("command", cmd).Error("command failed")
		os.Exit(1)
	}
}

func makeUser(ctx context.Context, svc *auth.Service, role auth.Role, cmd string, args []string, log logrus.FieldLogger) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "password, generated when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := svc.CreateUser(ctx, auth.NewUser{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Roles:    []auth.Role{role},
	})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"user_id": created.User.ID, "role": string(role)}).Info("user created")
	if *password == "" {
		fmt.Printf("email: %s\npassword: %s\n", created.User.Email, created.Password)
	}
	return nil
}

func deleteQuestions(ctx context.Context, svc *question.Service, args []string, log logrus.FieldLogger) error {
	fs := flag.NewFlagSet("delete-questions", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm deletion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("refusing to delete questions without -yes")
	}

	log.Info("deleting questions")
	n, err := svc.DeleteAll(ctx)
	if err != nil {
		return err
	}
	log.WithField("deleted", n).Info("questions deleted")
	return nil
}
