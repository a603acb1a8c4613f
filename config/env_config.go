package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	Postgres struct {
		HOST     string
		Database string
		Username string
		Password string
		Port     string
		SSLMode  string
	}
	JWT struct {
		SecretKey string
		Algorithm string
		Expire    int
	}
	CORS struct {
		AllowDomains string
		GlobalDomain string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Storage struct {
		Driver        string // minio | s3
		Endpoint      string
		AccessKey     string
		SecretKey     string
		Bucket        string
		Region        string
		PublicBaseURL string
		UseSSL        bool
	}
	Media struct {
		UploadConcurrency  int
		CallTimeout        time.Duration
		UpdatePolicy       string // append | replace
		MaxUploadSize      int64
		MaxFilesPerRequest int
	}
	Catalog struct {
		RequireRegisteredCategory bool
	}
	Cache struct {
		TTL         time.Duration
		SettleDelay time.Duration
	}
	Admin struct {
		AllowedIPs []string
	}

	// TrustedProxies lists proxies whose X-Forwarded-For is honoured. Empty trusts none.
	TrustedProxies []string

	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}

	Environment struct {
		Mode  string
		Group string
	}
	Port string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.HOST = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")
	if config.Postgres.Port == "" {
		config.Postgres.Port = "5432"
	}
	config.Postgres.SSLMode = os.Getenv("PGPOOL_SSLMODE")
	if config.Postgres.SSLMode == "" {
		config.Postgres.SSLMode = "disable"
	}

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	config.JWT.Algorithm = os.Getenv("JWT_ALGORITHM")

	if val := os.Getenv("JWT_EXPIRE"); val != "" {
		fmt.Sscanf(val, "%d", &config.JWT.Expire)
	} else {
		config.JWT.Expire = 3600 * 24 * 7
	}

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")
	config.CORS.GlobalDomain = os.Getenv("GLOBAL_DOMAIN")

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	if config.Redis.RedisHost == "" {
		config.Redis.RedisHost = "localhost"
	}
	config.Redis.RedisPort = os.Getenv("REDIS_PORT")
	if config.Redis.RedisPort == "" {
		config.Redis.RedisPort = "6379"
	}

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	// Object storage
	config.Storage.Driver = strings.ToLower(os.Getenv("STORAGE_DRIVER"))
	if config.Storage.Driver == "" {
		config.Storage.Driver = "minio"
	}
	config.Storage.Endpoint = os.Getenv("STORAGE_ENDPOINT")
	if config.Storage.Endpoint == "" {
		config.Storage.Endpoint = os.Getenv("MINIO_ENDPOINT")
	}
	config.Storage.AccessKey = os.Getenv("STORAGE_ACCESS_KEY")
	if config.Storage.AccessKey == "" {
		config.Storage.AccessKey = os.Getenv("MINIO_ROOT_USER")
	}
	config.Storage.SecretKey = os.Getenv("STORAGE_SECRET_KEY")
	if config.Storage.SecretKey == "" {
		config.Storage.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	}
	config.Storage.Bucket = os.Getenv("STORAGE_BUCKET")
	if config.Storage.Bucket == "" {
		config.Storage.Bucket = "catalog-media"
	}
	config.Storage.Region = os.Getenv("STORAGE_REGION")
	if config.Storage.Region == "" {
		config.Storage.Region = "us-east-1"
	}
	config.Storage.PublicBaseURL = strings.TrimRight(os.Getenv("STORAGE_PUBLIC_BASE_URL"), "/")
	config.Storage.UseSSL = os.Getenv("STORAGE_USE_SSL") == "true"

	// Media ingestion
	config.Media.UploadConcurrency = 4
	if val, err := strconv.Atoi(os.Getenv("MEDIA_UPLOAD_CONCURRENCY")); err == nil && val > 0 {
		config.Media.UploadConcurrency = val
	}
	config.Media.CallTimeout = 30 * time.Second
	if val, err := time.ParseDuration(os.Getenv("STORAGE_CALL_TIMEOUT")); err == nil && val > 0 {
		config.Media.CallTimeout = val
	}
	config.Media.UpdatePolicy = strings.ToLower(os.Getenv("MEDIA_UPDATE_POLICY"))
	if config.Media.UpdatePolicy != "replace" {
		config.Media.UpdatePolicy = "append"
	}
	config.Media.MaxUploadSize = 52428800 // Default 50MB
	if val, err := strconv.ParseInt(os.Getenv("MAX_UPLOAD_SIZE"), 10, 64); err == nil && val > 0 {
		config.Media.MaxUploadSize = val
	}
	config.Media.MaxFilesPerRequest = 10
	if val, err := strconv.Atoi(os.Getenv("MAX_FILES_PER_REQUEST")); err == nil && val > 0 {
		config.Media.MaxFilesPerRequest = val
	}

	config.Catalog.RequireRegisteredCategory = os.Getenv("CATALOG_REQUIRE_REGISTERED_CATEGORY") == "true"

	config.Cache.TTL = 5 * time.Minute
	if val, err := time.ParseDuration(os.Getenv("CACHE_TTL")); err == nil && val > 0 {
		config.Cache.TTL = val
	}

	config.Cache.SettleDelay = 2 * time.Second
	if val, err := time.ParseDuration(os.Getenv("CACHE_SETTLE_DELAY")); err == nil && val > 0 {
		config.Cache.SettleDelay = val
	}

	for _, ip := range strings.Split(os.Getenv("ADMIN_ALLOWED_IPS"), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			config.Admin.AllowedIPs = append(config.Admin.AllowedIPs, ip)
		}
	}

	for _, proxy := range strings.Split(os.Getenv("TRUSTED_PROXIES"), ",") {
		if proxy = strings.TrimSpace(proxy); proxy != "" {
			config.TrustedProxies = append(config.TrustedProxies, proxy)
		}
	}

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "gau-catalog-service"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}

	config.Environment.Group = os.Getenv("GROUP_NAME")
	if config.Environment.Group == "" {
		config.Environment.Group = "local"
	}

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080"
	}

	return &config
}
