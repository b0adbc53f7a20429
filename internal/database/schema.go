package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the tables the service owns.  Statements are idempotent so
// EnsureSchema can run on every boot.  media_items belongs to the upload
// service; it is created here only so a fresh database is usable.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS presence (
		user_id       VARCHAR(64)  NOT NULL PRIMARY KEY,
		lat           DOUBLE       NOT NULL,
		lng           DOUBLE       NOT NULL,
		venue_type    VARCHAR(32)  NULL,
		is_stationary BOOLEAN      NOT NULL DEFAULT FALSE,
		discoverable  BOOLEAN      NOT NULL DEFAULT TRUE,
		activated_at  DATETIME(3)  NULL,
		last_seen_at  DATETIME(3)  NOT NULL,
		KEY idx_presence_match (discoverable, is_stationary, last_seen_at),
		KEY idx_presence_lat_lng (lat, lng)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS daily_cycle_slot (
		viewer_id       VARCHAR(64) NOT NULL,
		day_key         CHAR(10)    NOT NULL,
		slot            TINYINT     NOT NULL,
		target_id       VARCHAR(64) NOT NULL,
		conversation_id VARCHAR(64) NULL,
		status          VARCHAR(16) NOT NULL DEFAULT 'active',
		created_at      DATETIME(3) NOT NULL,
		updated_at      DATETIME(3) NOT NULL,
		PRIMARY KEY (viewer_id, day_key, slot),
		UNIQUE KEY uq_cycle_target (viewer_id, day_key, target_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS pair_blocklist (
		user_low             VARCHAR(64) NOT NULL,
		user_high            VARCHAR(64) NOT NULL,
		reason               VARCHAR(32) NOT NULL,
		last_conversation_id VARCHAR(64) NULL,
		created_at           DATETIME(3) NOT NULL,
		updated_at           DATETIME(3) NOT NULL,
		PRIMARY KEY (user_low, user_high)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reveal_decision (
		conversation_id VARCHAR(64) NOT NULL,
		user_id         VARCHAR(64) NOT NULL,
		other_user_id   VARCHAR(64) NOT NULL,
		decision        VARCHAR(8)  NOT NULL,
		decided_at      DATETIME(3) NOT NULL,
		PRIMARY KEY (conversation_id, user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS conversations (
		id          VARCHAR(64) NOT NULL PRIMARY KEY,
		user_low    VARCHAR(64) NOT NULL,
		user_high   VARCHAR(64) NOT NULL,
		status      VARCHAR(16) NOT NULL DEFAULT 'open',
		revealed_at DATETIME(3) NULL,
		created_at  DATETIME(3) NOT NULL,
		KEY idx_conversations_pair (user_low, user_high)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS conversation_senders (
		conversation_id VARCHAR(64) NOT NULL,
		sender_id       VARCHAR(64) NOT NULL,
		first_seen_at   DATETIME(3) NOT NULL,
		PRIMARY KEY (conversation_id, sender_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS push_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    VARCHAR(64)  NOT NULL,
		token      VARCHAR(255) NOT NULL,
		platform   VARCHAR(16)  NULL,
		device_id  VARCHAR(128) NULL,
		updated_at DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_push_user_device (user_id, device_id),
		UNIQUE KEY uq_push_user_token (user_id, token)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS media_items (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    VARCHAR(64)  NOT NULL,
		object_key VARCHAR(512) NOT NULL,
		is_primary BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_media_user_primary (user_id, is_primary)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
