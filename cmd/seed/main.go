package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/oksasatya/phq9-intake/config"
	"github.com/oksasatya/phq9-intake/internal/application"
	"github.com/oksasatya/phq9-intake/internal/container"
	pginfra "github.com/oksasatya/phq9-intake/internal/infrastructure/postgres"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
)

// Seeds a demo patient and one sample submission. Run after migrations.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	c := container.New(container.Infra{Config: cfg, Logger: logger, PG: pool})
	defer c.Close()

	const (
		email    = "demo.patient@gmail.com"
		password = "password123"
	)
	u, err := c.UserService.Register(ctx, application.RegisterInput{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		Age:             34,
		Gender:          "female",
		Industry:        "education",
		Profession:      "teacher",
		Username:        "demoPatient",
		FirstName:       "Demo",
		LastName:        "Patient",
	})
	switch {
	case errors.Is(err, application.ErrEmailTaken), errors.Is(err, application.ErrUsernameTaken):
		u, err = c.Users.GetByEmail(ctx, email)
		if err != nil {
			logger.WithError(err).Fatal("demo user exists but cannot be loaded")
		}
	case err != nil:
		logger.WithError(err).Fatal("failed to seed user")
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", u.ID, email, password)

	total := 9
	res, err := c.AssessmentService.Submit(ctx, application.SubmitInput{
		UserID:        u.ID,
		Responses:     map[string]int{"0": 3, "1": 0, "2": 2, "3": 2, "4": 2, "5": 0, "6": 0, "7": 0, "8": 0},
		TotalScore:    &total,
		PatientsNotes: "seeded sample",
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to seed assessment")
	}
	fmt.Printf("seeded assessment: id=%d severity=%q\n", res.AssessmentID, res.Result.Severity)
}
