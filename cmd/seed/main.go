// Command seed bootstraps a local environment: it migrates the schema,
// provisions demo workspaces and a demo subject folder through the full vault
// stack, and prints bearer tokens for each demo principal.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"medvault/internal/config"
	"medvault/internal/database"
	"medvault/internal/domain/audit"
	"medvault/internal/domain/vault"
	"medvault/internal/pkg/blobstore"
	"medvault/internal/pkg/envelope"
	jwtsvc "medvault/internal/pkg/jwt"
)

const demoModule = "cardiology"

type demoPrincipal struct {
	id   string
	role vault.Role
}

var demoPrincipals = []demoPrincipal{
	{"demo-superadmin", vault.RoleSuperAdmin},
	{"demo-admin", vault.RoleAdmin},
	{"demo-doctor", vault.RoleDoctor},
	{"demo-nurse", vault.RoleNurse},
	{"demo-patient", vault.RolePatient},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.AppEnv == "prod" {
		log.Fatal("seed refuses to run against a prod environment")
	}

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := vault.Migrate(db); err != nil {
		log.Fatal(err)
	}
	if err := audit.Migrate(db); err != nil {
		log.Fatal(err)
	}

	cipher, err := envelope.NewFromHex(cfg.VaultKeyHex, cfg.VaultKeyID)
	if cfg.VaultKeyHex == "" || err != nil {
		log.Fatal("seed needs MEDVAULT_KEY set to a hex-encoded 32-byte key")
	}

	var store blobstore.Store
	if cfg.StoreBackend == "memory" {
		log.Fatal("seed against the memory store is pointless, point MEDVAULT_STORE at minio")
	}
	store, err = blobstore.NewMinio(context.Background(), blobstore.MinioConfig{
		Endpoint:  cfg.StoreEndpoint,
		AccessKey: cfg.StoreAccessKey,
		SecretKey: cfg.StoreSecretKey,
		Bucket:    cfg.StoreBucket,
		Region:    cfg.StoreRegion,
		UseSSL:    cfg.StoreUseSSL,
		Timeout:   cfg.StorageTimeout,
	})
	if err != nil {
		log.Fatal(err)
	}

	workspaceRepo := vault.NewWorkspaceRepository(db)
	folderRepo := vault.NewFolderRepository(db)
	fileRepo := vault.NewFileRepository(db)
	grantRepo := vault.NewGrantRepository(db)

	auditRepo := audit.NewRepository(db)
	writer := audit.NewWriter(auditRepo, nil, cfg.AuditBufferSize)
	defer writer.Close()

	manager := vault.NewManager(workspaceRepo, folderRepo, fileRepo, store, cipher, cfg.MaxUploadBytes, cfg.DefaultQuotaBytes)
	service := vault.NewService(manager, workspaceRepo, folderRepo, grantRepo, writer)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	ctx := context.Background()

	for _, p := range demoPrincipals {
		module := ""
		if p.role == vault.RoleAdmin {
			module = demoModule
		}
		token, err := j.GenerateToken(p.id, string(p.role), module)
		if err != nil {
			log.Fatal(err)
		}

		principal := vault.Principal{ID: p.id, Role: p.role, Module: module, Origin: "seed"}
		ws, err := service.EnsureWorkspace(ctx, principal, demoModule, 0)
		if err != nil {
			log.Fatalf("workspace for %s: %v", p.id, err)
		}

		fmt.Printf("%-16s %-10s workspace=%s\n", p.id, p.role, ws.PathPrefix)
		fmt.Printf("  token: %s\n", token)
	}

	doctor := vault.Principal{ID: "demo-doctor", Role: vault.RoleDoctor, Origin: "seed"}
	folder, err := service.CreateFolder(ctx, doctor, demoModule, "demo-patient")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("demo subject folder: id=%s prefix=%s\n", folder.ID, folder.PathPrefix)
}
