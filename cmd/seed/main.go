package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-portal/internal/apiclient"
	"github.com/hackgods/clinic-portal/internal/config"
	"github.com/hackgods/clinic-portal/internal/logging"
	"github.com/hackgods/clinic-portal/internal/session"
)

// account is one seeded user, written out so the simulator can log in.
type account struct {
	Email    string
	Password string
	FullName string
	Role     session.Role
}

func main() {
	psychologists := flag.Int("psychologists", 10, "number of psychologists to register")
	patients := flag.Int("patients", 200, "number of patients to register")
	out := flag.String("out", "seed_accounts.csv", "where to write the seeded credentials")
	workers := flag.Int("workers", 8, "concurrent registrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("seed starting",
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.Int("psychologists", *psychologists),
		zap.Int("patients", *patients),
	)

	client, err := apiclient.New(cfg.APIBaseURL, 10*time.Second, logger)
	if err != nil {
		logger.Fatal("api client init error", zap.Error(err))
	}

	gofakeit.Seed(time.Now().UnixNano())

	accounts := make([]account, 0, *psychologists+*patients)
	for i := 0; i < *psychologists; i++ {
		accounts = append(accounts, fakeAccount(session.RolePsychologist))
	}
	for i := 0; i < *patients; i++ {
		accounts = append(accounts, fakeAccount(session.RolePatient))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	registered, err := register(ctx, client, accounts, *workers, logger)
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}

	if err := writeAccounts(*out, registered); err != nil {
		logger.Fatal("write accounts", zap.Error(err))
	}

	logger.Info("seed complete", zap.Int("registered", len(registered)), zap.String("out", *out))
}

func fakeAccount(role session.Role) account {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	name := first + " " + last
	if role == session.RolePsychologist {
		name = "Dr. " + name
	}

	// A random tag keeps reruns from colliding with earlier seeds.
	tag := strings.SplitN(uuid.NewString(), "-", 2)[0]
	email := fmt.Sprintf("%s.%s+%s@%s", strings.ToLower(first), strings.ToLower(last), tag, gofakeit.DomainName())

	return account{
		Email:    email,
		Password: gofakeit.Password(true, true, true, false, false, 14),
		FullName: name,
		Role:     role,
	}
}

// register creates every account through the API. Accounts the API rejects
// as duplicates are skipped; any other failure stops the run.
func register(ctx context.Context, client *apiclient.Client, accounts []account, workers int, logger *zap.Logger) ([]account, error) {
	var (
		mu   sync.Mutex
		done []account
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, a := range accounts {
		g.Go(func() error {
			err := client.Register(gctx, apiclient.RegisterRequest{
				Email:    a.Email,
				Password: a.Password,
				FullName: a.FullName,
				Role:     string(a.Role),
			})
			var apiErr *apiclient.Error
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
				logger.Warn("account rejected", zap.String("email", a.Email), zap.String("detail", apiErr.Detail))
				return nil
			}
			if err != nil {
				return fmt.Errorf("register %s: %w", a.Email, err)
			}

			mu.Lock()
			done = append(done, a)
			n := len(done)
			mu.Unlock()

			if n%50 == 0 {
				logger.Info("accounts registered", zap.Int("count", n), zap.Int("total", len(accounts)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return done, err
	}
	return done, nil
}

func writeAccounts(path string, accounts []account) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"email", "password", "full_name", "role"}); err != nil {
		return err
	}
	for _, a := range accounts {
		if err := w.Write([]string{a.Email, a.Password, a.FullName, string(a.Role)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
