package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS users (
	  id CHAR(36) NOT NULL,
	  username VARCHAR(64) NOT NULL,
	  email VARCHAR(255) NOT NULL,
	  password_hash VARCHAR(100) NOT NULL,
	  email_verified TINYINT(1) NOT NULL DEFAULT 0,
	  stripe_customer_id VARCHAR(64) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_users_username (username),
	  UNIQUE KEY ux_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS user_tokens (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  purpose VARCHAR(32) NOT NULL,
	  token_hash CHAR(64) NOT NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  expires_at DATETIME(3) NOT NULL,
	  used_at DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_user_tokens_hash (token_hash),
	  KEY ix_user_tokens_user_purpose (user_id, purpose),
	  CONSTRAINT fk_user_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS auth_rate_limit_buckets (
	  id CHAR(36) NOT NULL,
	  ip_address VARCHAR(45) NOT NULL,
	  window_start DATETIME(3) NOT NULL,
	  request_count INT NOT NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_rate_limit_buckets_ip (ip_address)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS auth_login_locks (
	  id CHAR(36) NOT NULL,
	  lock_key VARCHAR(321) NOT NULL,
	  window_start DATETIME(3) NOT NULL,
	  failure_count INT NOT NULL,
	  locked_until DATETIME(3) NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_login_locks_key (lock_key)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS shop_orders (
	  id CHAR(36) NOT NULL,
	  user_id CHAR(36) NOT NULL,
	  product_id VARCHAR(64) NOT NULL,
	  product_name VARCHAR(255) NOT NULL,
	  amount_cents BIGINT NOT NULL,
	  currency CHAR(3) NOT NULL,
	  status VARCHAR(16) NOT NULL,
	  stripe_checkout_session_id VARCHAR(128) NOT NULL,
	  stripe_payment_intent_id VARCHAR(128) NULL,
	  idempotency_key VARCHAR(160) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_shop_orders_session (stripe_checkout_session_id),
	  UNIQUE KEY ux_shop_orders_user_idem (user_id, idempotency_key),
	  KEY ix_shop_orders_user (user_id),
	  KEY ix_shop_orders_intent (stripe_payment_intent_id),
	  KEY ix_shop_orders_status_updated (status, updated_at),
	  CONSTRAINT fk_shop_orders_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS processed_stripe_events (
	  id CHAR(36) NOT NULL,
	  event_id VARCHAR(128) NOT NULL,
	  event_type VARCHAR(64) NOT NULL,
	  payload_json JSON NULL,
	  processed_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_processed_events_event (event_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := sqlDB.Exec(sql); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("Tables created.")
}
