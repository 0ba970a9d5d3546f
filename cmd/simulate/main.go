package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-portal/internal/apiclient"
	"github.com/hackgods/clinic-portal/internal/appointment"
	"github.com/hackgods/clinic-portal/internal/config"
	"github.com/hackgods/clinic-portal/internal/logging"
	"github.com/hackgods/clinic-portal/internal/session"
)

type SimConfig struct {
	AccountsFile string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ReadRatio    float64
	PatientLimit int
	DaysAhead    int
}

// patient is a seeded patient that logged in successfully.
type patient struct {
	ID    int64
	Token string
}

type DataPool struct {
	Patients []patient
	Doctors  []apiclient.User
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Login       OperationMetrics
	Booking     OperationMetrics
	ListOwn     OperationMetrics
	ListDoctors OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *apiclient.Client
	logger  *zap.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	logger, err := logging.New(baseCfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	logger.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking_ratio", cfg.BookingRatio),
		zap.Float64("read_ratio", cfg.ReadRatio),
	)

	client, err := apiclient.New(baseCfg.APIBaseURL, 10*time.Second, zap.NewNop())
	if err != nil {
		logger.Fatal("api client init error", zap.Error(err))
	}

	sim := &Simulator{config: cfg, client: client, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sim.pool, err = sim.loadDataPool(ctx)
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}
	logger.Info("data pool ready", zap.Int("patients", len(sim.pool.Patients)), zap.Int("doctors", len(sim.pool.Doctors)))

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		AccountsFile: getEnv("SIM_ACCOUNTS_FILE", "seed_accounts.csv"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.4),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 200),
		DaysAhead:    getInt("SIM_DAYS_AHEAD", 14),
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.DaysAhead <= 0 {
		return fmt.Errorf("SIM_DAYS_AHEAD must be > 0")
	}
	return nil
}

// loadDataPool logs in the seeded patients and lists the psychologists
// they can book with.
func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	creds, err := readPatients(s.config.AccountsFile, s.config.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	pool := &DataPool{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for _, c := range creds {
		g.Go(func() error {
			start := time.Now()
			resp, err := s.client.Login(gctx, c[0], c[1])
			s.metrics.Login.Record(time.Since(start), err == nil, false)
			if err != nil {
				s.logger.Warn("login failed", zap.String("email", c[0]), zap.Error(err))
				return nil
			}

			mu.Lock()
			pool.Patients = append(pool.Patients, patient{ID: resp.User.ID, Token: resp.AccessToken})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(pool.Patients) == 0 {
		return nil, fmt.Errorf("no patients logged in")
	}

	tokenCtx := apiclient.WithToken(ctx, pool.Patients[0].Token)
	pool.Doctors, err = s.client.Users(tokenCtx, string(session.RolePsychologist))
	if err != nil {
		return nil, fmt.Errorf("list psychologists: %w", err)
	}
	if len(pool.Doctors) == 0 {
		return nil, fmt.Errorf("no psychologists registered")
	}

	return pool, nil
}

// readPatients returns email/password pairs of the patient rows in a
// seed file, at most limit of them.
func readPatients(path string, limit int) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	var out [][2]string
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		if row[3] != string(session.RolePatient) {
			continue
		}
		out = append(out, [2]string{row[0], row[1]})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting simulation", zap.Duration("duration", s.config.Duration), zap.Int("workers", s.config.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
			pctx := apiclient.WithToken(ctx, p.Token)

			if rng.Float64() < s.config.BookingRatio {
				s.doBooking(pctx, rng, p)
			} else if rng.Intn(2) == 0 {
				s.doListOwn(pctx)
			} else {
				s.doListDoctors(pctx)
			}
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, p patient) {
	doctor := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]

	now := time.Now()
	day := time.Date(now.Year(), now.Month(), now.Day()+1+rng.Intn(s.config.DaysAhead), 0, 0, 0, 0, time.Local)
	at, err := appointment.BookingTime(day, appointment.Slots[rng.Intn(len(appointment.Slots))])
	if err != nil {
		return
	}

	start := time.Now()
	err = s.client.CreateAppointment(ctx, apiclient.CreateAppointmentRequest{
		PatientID:       p.ID,
		DoctorID:        doctor.ID,
		AppointmentTime: apiclient.FormatTime(at),
	})
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	var apiErr *apiclient.Error
	conflict := errors.Is(err, apiclient.ErrConflict) || (errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest)
	s.metrics.Booking.Record(latency, err == nil, conflict)
}

func (s *Simulator) doListOwn(ctx context.Context) {
	start := time.Now()
	_, err := s.client.PatientAppointments(ctx)
	if ctx.Err() != nil {
		return
	}
	s.metrics.ListOwn.Record(time.Since(start), err == nil || errors.Is(err, apiclient.ErrNotFound), false)
}

func (s *Simulator) doListDoctors(ctx context.Context) {
	start := time.Now()
	_, err := s.client.Users(ctx, string(session.RolePsychologist))
	if ctx.Err() != nil {
		return
	}
	s.metrics.ListDoctors.Record(time.Since(start), err == nil, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Patients: %d  Psychologists: %d\n", len(s.pool.Patients), len(s.pool.Doctors))
	fmt.Println()

	printOperationReport("Login", &s.metrics.Login)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("List own appointments", &s.metrics.ListOwn)
	printOperationReport("List psychologists", &s.metrics.ListDoctors)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
