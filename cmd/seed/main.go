// Package main seeds admin accounts, coaches and teams from a YAML file.
// Running it twice is safe: existing records are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	app "github.com/clubhouse-sports/clubhouse/internal/app"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/coaches"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/teams"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage/postgres"
	"github.com/clubhouse-sports/clubhouse/internal/config"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"gopkg.in/yaml.v3"
)

// File is the seed document.
type File struct {
	Admins  []Admin `yaml:"admins"`
	Coaches []Coach `yaml:"coaches"`
	Teams   []Team  `yaml:"teams"`
}

type Admin struct {
	Phone    string `yaml:"phone"`
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
	MPIN     string `yaml:"mpin"`
}

type Coach struct {
	Phone         string `yaml:"phone"`
	FullName      string `yaml:"full_name"`
	Email         string `yaml:"email"`
	Specialty     string `yaml:"specialty"`
	Certification string `yaml:"certification"`
}

type Team struct {
	Name           string `yaml:"name"`
	AgeGroup       string `yaml:"age_group"`
	Division       string `yaml:"division"`
	Season         string `yaml:"season"`
	HeadCoachPhone string `yaml:"head_coach_phone"`
}

// Result counts what a run created and skipped.
type Result struct {
	Created int
	Skipped int
}

func main() {
	file := flag.String("file", "seed.yaml", "Seed file")
	envFile := flag.String("env", ".env", "Optional .env file")
	flag.Parse()

	log := logger.NewDefault("seed")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if cfg.Database.DSN == "" {
		log.Fatal("DATABASE_URL is required for seeding")
	}

	doc, err := Load(*file)
	if err != nil {
		log.WithError(err).Fatal("read seed file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database.DSN, postgres.PoolConfig{MaxOpenConns: 4}, cfg.Database.MigrateOnStart)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	store := postgres.New(db)

	application, err := app.New(app.Stores{
		Users: store, Sessions: store, Applications: store, Trials: store,
		Coaches: store, Teams: store, Documents: store,
	}, app.Options{Auth: auth.Config{Secret: []byte(cfg.Auth.JWTSecret), BcryptCost: cfg.Auth.BcryptCost}}, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	res, err := Seed(ctx, application, store, store, doc, log)
	if err != nil {
		log.WithError(err).Fatal("seed failed")
	}
	log.WithField("created", res.Created).WithField("skipped", res.Skipped).Info("seed complete")
}

// Load parses a seed file.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return File{}, err
	}
	var doc File
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return File{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Seed creates every record in doc that does not exist yet. Admins are
// created ACTIVE with their MPIN; coaches go through the invite flow.
func Seed(ctx context.Context, application *app.Application, users storage.UserStore, coachStore storage.CoachStore, doc File, log *logger.Logger) (Result, error) {
	var res Result

	for _, a := range doc.Admins {
		phone, err := user.NormalizePhone(a.Phone)
		if err != nil {
			return res, fmt.Errorf("admin %q: %w", a.FullName, err)
		}
		hash, err := application.Auth.HashMPIN(a.MPIN)
		if err != nil {
			return res, fmt.Errorf("admin %q: %w", a.FullName, err)
		}
		_, err = users.CreateUser(ctx, user.User{
			Phone:    phone,
			Email:    a.Email,
			FullName: a.FullName,
			Role:     user.RoleAdmin,
			Status:   user.StatusActive,
			MPINHash: hash,
		})
		if errors.Is(err, storage.ErrConflict) {
			log.WithField("phone", phone).Info("admin exists; skipped")
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("admin %q: %w", a.FullName, err)
		}
		res.Created++
	}

	for _, c := range doc.Coaches {
		_, err := application.Coaches.Create(ctx, coaches.CreateInput{
			FullName:      c.FullName,
			Phone:         c.Phone,
			Email:         c.Email,
			Specialty:     c.Specialty,
			Certification: c.Certification,
		})
		if svcerrors.HasCode(err, svcerrors.CodeConflict) {
			log.WithField("phone", c.Phone).Info("coach exists; skipped")
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("coach %q: %w", c.FullName, err)
		}
		res.Created++
	}

	for _, t := range doc.Teams {
		in := teams.Input{Name: strp(t.Name), AgeGroup: strp(t.AgeGroup), Division: strp(t.Division), Season: strp(t.Season)}
		if t.HeadCoachPhone != "" {
			coachID, err := coachByPhone(ctx, users, coachStore, t.HeadCoachPhone)
			if err != nil {
				return res, fmt.Errorf("team %q: %w", t.Name, err)
			}
			in.HeadCoachID = &coachID
		}
		_, err := application.Teams.Create(ctx, in)
		if svcerrors.HasCode(err, svcerrors.CodeConflict) {
			log.WithField("team", t.Name).Info("team exists; skipped")
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("team %q: %w", t.Name, err)
		}
		res.Created++
	}
	return res, nil
}

func coachByPhone(ctx context.Context, users storage.UserStore, coachStore storage.CoachStore, raw string) (string, error) {
	phone, err := user.NormalizePhone(raw)
	if err != nil {
		return "", err
	}
	u, err := users.GetUserByPhone(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("head coach %s: %w", phone, err)
	}
	c, err := coachStore.GetCoachByUserID(ctx, u.ID)
	if err != nil {
		return "", fmt.Errorf("head coach %s: %w", phone, err)
	}
	return c.ID, nil
}

func strp(s string) *string { return &s }
