package testutil

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/student"
	"github.com/trezcool/kikundi/core/user"
	logsvc "github.com/trezcool/kikundi/services/logger"
)

func init() {
	user.BcryptCost = bcrypt.MinCost
}

// NewConfig returns the configuration used by tests: no debug, no AI, no request logs.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.SecretKey = "test-secret"
	conf.RollbarToken = ""
	conf.Gemini.APIKey = ""
	conf.Server.DisableReqLogs = true
	conf.NotifyGroupMembers = false
	return conf
}

// NewValidator returns a validator with every domain validator registered, along with its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger that never reports to Rollbar.
func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return logger
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd, role string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent saves a Student along with its STUDENT User, whose password is "password123".
func CreateStudent(t *testing.T, repo student.Repository, name, email string, cgpa float64, skills ...string) student.Student {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      user.RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword("password123"); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}

	if skills == nil {
		skills = []string{}
	}
	st := student.Student{
		Name:      name,
		Email:     email,
		CGPA:      cgpa,
		Skills:    skills,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st, err := repo.CreateStudent(context.Background(), st, &usr)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}
