package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexcrm/nexus/internal/config"
	"github.com/nexcrm/nexus/internal/domain"
	"github.com/nexcrm/nexus/internal/service"
	"github.com/nexcrm/nexus/internal/store"
)

func main() {
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	createTenant := createCmd.String("tenant", "", "Tenant ID")
	createUser := createCmd.String("user", "operator", "User ID recorded on the key")
	createDesc := createCmd.String("desc", "operator key", "Description of the key")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listTenant := listCmd.String("tenant", "", "Tenant ID")

	revokeCmd := flag.NewFlagSet("revoke", flag.ExitOnError)
	revokeTenant := revokeCmd.String("tenant", "", "Tenant ID")
	revokeID := revokeCmd.String("id", "", "API key UUID to revoke")

	if len(os.Args) < 2 {
		fmt.Println("expected 'create', 'list' or 'revoke' subcommands")
		os.Exit(1)
	}

	if err := config.Load(); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	keys := store.NewAPIKeyStore(pool, cfg.AdminSchema)
	svc := service.NewAPIKeyService(keys)

	switch os.Args[1] {
	case "create":
		if err := createCmd.Parse(os.Args[2:]); err != nil {
			log.Fatalf("failed to parse create flags: %v", err)
		}
		createKey(ctx, svc, *createTenant, *createUser, *createDesc)
	case "list":
		if err := listCmd.Parse(os.Args[2:]); err != nil {
			log.Fatalf("failed to parse list flags: %v", err)
		}
		listKeys(ctx, svc, *listTenant)
	case "revoke":
		if err := revokeCmd.Parse(os.Args[2:]); err != nil {
			log.Fatalf("failed to parse revoke flags: %v", err)
		}
		revokeKey(ctx, svc, *revokeTenant, *revokeID)
	default:
		fmt.Println("expected 'create', 'list' or 'revoke' subcommands")
		os.Exit(1)
	}
}

func requireTenant(tenantID string) {
	if tenantID == "" {
		log.Fatal("-tenant is required")
	}
}

func createKey(ctx context.Context, svc *service.APIKeyService, tenantID, userID, desc string) {
	requireTenant(tenantID)

	issued, err := svc.Issue(ctx, domain.TenantContext{TenantID: tenantID, UserID: userID}, desc)
	if err != nil {
		log.Fatalf("failed to create API key: %v", err)
	}

	fmt.Printf("API key created\n")
	fmt.Printf("---------------------------\n")
	fmt.Printf("ID:      %s\n", issued.Key.ID)
	fmt.Printf("Tenant:  %s\n", issued.Key.TenantID)
	fmt.Printf("Prefix:  %s\n", issued.Key.Prefix)
	fmt.Printf("VALUE:   %s\n", issued.RawKey)
	fmt.Printf("---------------------------\n")
	fmt.Printf("CAUTION: this is the only time the key will be shown.\n")
}

func listKeys(ctx context.Context, svc *service.APIKeyService, tenantID string) {
	requireTenant(tenantID)

	keys, err := svc.List(ctx, domain.TenantContext{TenantID: tenantID})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("API keys for tenant %s\n", tenantID)
	fmt.Printf("%-36s %-10s %-10s %-20s %s\n", "ID", "Prefix", "Status", "Created", "Description")
	for _, k := range keys {
		fmt.Printf("%-36s %-10s %-10s %-20s %s\n",
			k.ID, k.Prefix, k.Status, k.CreatedAt.Format("2006-01-02 15:04:05"), k.Description)
	}
}

func revokeKey(ctx context.Context, svc *service.APIKeyService, tenantID, id string) {
	requireTenant(tenantID)
	if id == "" {
		log.Fatal("-id is required")
	}
	keyID, err := uuid.Parse(id)
	if err != nil {
		log.Fatalf("invalid key id: %v", err)
	}
	if err := svc.Revoke(ctx, domain.TenantContext{TenantID: tenantID}, keyID); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("API key %s revoked\n", id)
}
