// Command token mints a STAFF or ADMIN bearer token for back-office use.
//
//	token -operator ops@example.com -role admin -ttl 8h
//
// The token is signed with the jwt.secret of the loaded configuration and
// written to stdout, so it can be captured with $(token ...).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		operator string
		roleName string
		ttl      time.Duration
	)
	flag.StringVar(&operator, "operator", "", "Operator identity recorded in the token subject (required)")
	flag.StringVar(&roleName, "role", string(auth.RoleStaff), "Role to grant: STAFF or ADMIN")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (default: jwt.staff_expiration)")
	flag.Parse()

	// Logs go to stderr so stdout carries only the token
	log, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if operator == "" {
		flag.Usage()
		os.Exit(2)
	}
	role, ok := auth.ParseRole(roleName)
	if !ok || role == auth.RoleCustomer {
		log.Fatal("Role must be STAFF or ADMIN", zap.String("role", roleName))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	token, expiresAt, err := auth.NewJWTService(cfg.JWT).GenerateOperatorToken(operator, role, ttl)
	if err != nil {
		log.Fatal("Failed to sign token", zap.Error(err))
	}

	log.Info("Operator token issued",
		zap.String("operator", operator),
		zap.String("role", string(role)),
		zap.Time("expires_at", expiresAt),
	)
	fmt.Println(token)
}
