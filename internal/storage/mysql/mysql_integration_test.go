//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"wanderbook/internal/domain"
	mysqlrepo "wanderbook/internal/storage/mysql"
)

// startMySQL runs an isolated MySQL and returns a migrated repo.
func startMySQL(t *testing.T) *mysqlrepo.Repo {
	t.Helper()
	// Let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=wanderbook",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "wanderbook")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := mysqlrepo.New(db)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// migrations are idempotent
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate twice: %v", err)
	}
	return repo
}

func TestRepo_MySQL(t *testing.T) {
	repo := startMySQL(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("users", func(t *testing.T) {
		guest := domain.User{UserID: "guest_1", Email: "g@example.com", Name: "G", Guest: true, CreatedAt: now}
		if err := repo.CreateUser(ctx, guest); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		dup := guest
		dup.UserID = "guest_2"
		if err := repo.CreateUser(ctx, dup); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		u, err := repo.UpsertUser(ctx, domain.User{UserID: "ext_1", Email: "g@example.com", Name: "Real", Picture: "p"})
		if err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		if u.UserID != "guest_1" || u.Guest || u.Name != "Real" {
			t.Fatalf("expected guest adopted, got %+v", u)
		}
		stored, _ := repo.GetUserByEmail(ctx, "g@example.com")
		if stored.Guest {
			t.Fatalf("guest flag not cleared: %+v", stored)
		}
	})

	t.Run("sessions", func(t *testing.T) {
		s := domain.Session{SessionToken: "tok", UserID: "guest_1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		got, err := repo.GetSession(ctx, "tok")
		if err != nil || !got.ExpiresAt.Equal(s.ExpiresAt) {
			t.Fatalf("GetSession: %+v %v", got, err)
		}
		if _, err := repo.GetSession(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("payment transition is applied once", func(t *testing.T) {
		b := domain.Booking{BookingID: "booking_1", UserID: "guest_1", HotelID: 1001, HotelName: "Taj",
			CheckIn: "2026-03-01", CheckOut: "2026-03-03", GuestFirstName: "A", GuestLastName: "B",
			GuestEmail: "g@example.com", NumAdults: 2, TotalPrice: 250.5, Status: domain.BookingPendingPayment, CreatedAt: now}
		if err := repo.CreateBooking(ctx, b); err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
		p := domain.PaymentTransaction{PaymentID: "payment_1", SessionID: "cs_1", BookingID: "booking_1", UserID: "guest_1",
			Amount: 250.5, Currency: "usd", PaymentStatus: domain.PaymentPending, Status: domain.TransactionInitiated, CreatedAt: now}
		if err := repo.CreatePayment(ctx, p); err != nil {
			t.Fatalf("CreatePayment: %v", err)
		}

		var moved, confirmed atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, err := repo.MarkPaid(ctx, "cs_1"); err != nil {
					t.Errorf("MarkPaid: %v", err)
				} else if ok {
					moved.Add(1)
				}
				if ok, err := repo.ConfirmBooking(ctx, "booking_1"); err != nil {
					t.Errorf("ConfirmBooking: %v", err)
				} else if ok {
					confirmed.Add(1)
				}
			}()
		}
		wg.Wait()
		if moved.Load() != 1 || confirmed.Load() != 1 {
			t.Fatalf("expected one transition each, got %d/%d", moved.Load(), confirmed.Load())
		}

		list, err := repo.ListBookingsByUser(ctx, "guest_1", 10)
		if err != nil || len(list) != 1 || list[0].Status != domain.BookingConfirmed || list[0].TotalPrice != 250.5 {
			t.Fatalf("ListBookingsByUser: %+v %v", list, err)
		}
	})

	t.Run("cache expiry and sweep", func(t *testing.T) {
		key := domain.SearchKey{Destination: "jaipur", CheckIn: "2026-03-01", CheckOut: "2026-03-02"}
		if err := repo.PutSearch(ctx, key, []domain.Hotel{{ID: 1, Name: "A", Amenities: []string{"Spa"}}}, time.Hour); err != nil {
			t.Fatalf("PutSearch: %v", err)
		}
		hotels, ok, err := repo.GetSearch(ctx, key)
		if err != nil || !ok || hotels[0].Amenities[0] != "Spa" {
			t.Fatalf("GetSearch: %+v %v %v", hotels, ok, err)
		}

		if err := repo.PutDetail(ctx, 9, domain.Hotel{ID: 9}, -time.Second); err != nil {
			t.Fatalf("PutDetail: %v", err)
		}
		if _, ok, _ := repo.GetDetail(ctx, 9); ok {
			t.Fatalf("expired detail must read as a miss")
		}
		n, err := repo.SweepExpired(ctx, time.Now())
		if err != nil || n != 1 {
			t.Fatalf("SweepExpired: n=%d err=%v", n, err)
		}
	})
}
