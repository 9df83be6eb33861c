package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"medvault/internal/config"
	"medvault/internal/database"
	"medvault/internal/domain/audit"
	"medvault/internal/domain/vault"
	"medvault/internal/middleware"
	"medvault/internal/pkg/blobstore"
	"medvault/internal/pkg/envelope"
	jwtsvc "medvault/internal/pkg/jwt"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
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

	cipher, err := buildCipher(cfg)
	if err != nil {
		log.Fatal(err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatal(err)
	}

	workspaceRepo := vault.NewWorkspaceRepository(db)
	folderRepo := vault.NewFolderRepository(db)
	fileRepo := vault.NewFileRepository(db)
	grantRepo := vault.NewGrantRepository(db)

	auditRepo := audit.NewRepository(db)
	feed := audit.NewFeed()
	writer := audit.NewWriter(auditRepo, feed, cfg.AuditBufferSize)
	defer writer.Close()

	manager := vault.NewManager(workspaceRepo, folderRepo, fileRepo, store, cipher, cfg.MaxUploadBytes, cfg.DefaultQuotaBytes)
	service := vault.NewService(manager, workspaceRepo, folderRepo, grantRepo, writer)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	v1 := r.Group("/api/v1")
	{
		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			vault.RegisterRoutes(protected, vault.NewHandler(service))

			adminOnly := protected.Group("/")
			adminOnly.Use(middleware.RequireRole(string(vault.RoleAdmin), string(vault.RoleSuperAdmin)))
			audit.RegisterRoutes(adminOnly, audit.NewHandler(auditRepo, feed))
		}
	}

	log.Printf("medvault listening on %s (store=%s)", cfg.Address, cfg.StoreBackend)
	if err := r.Run(cfg.Address); err != nil {
		log.Fatal(err)
	}
}

func buildCipher(cfg *config.Config) (*envelope.Cipher, error) {
	if cfg.VaultKeyHex != "" {
		return envelope.NewFromHex(cfg.VaultKeyHex, cfg.VaultKeyID)
	}
	// Dev convenience: an ephemeral key makes earlier uploads unreadable
	// after restart. Load() rejects this in prod.
	key := make([]byte, envelope.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	log.Printf("MEDVAULT_KEY not set, using ephemeral key %s...", hex.EncodeToString(key[:4]))
	return envelope.New(key, cfg.VaultKeyID)
}

func buildStore(cfg *config.Config) (blobstore.Store, error) {
	if cfg.StoreBackend == "memory" {
		log.Print("using in-memory object store, contents are not persisted")
		return blobstore.NewMemory(), nil
	}
	return blobstore.NewMinio(context.Background(), blobstore.MinioConfig{
		Endpoint:  cfg.StoreEndpoint,
		AccessKey: cfg.StoreAccessKey,
		SecretKey: cfg.StoreSecretKey,
		Bucket:    cfg.StoreBucket,
		Region:    cfg.StoreRegion,
		UseSSL:    cfg.StoreUseSSL,
		Timeout:   cfg.StorageTimeout,
	})
}
