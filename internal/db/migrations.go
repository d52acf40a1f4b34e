package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('pending', 'active', 'completed', 'cancelled');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		id_document_number TEXT NOT NULL DEFAULT '',
		id_document_issuer TEXT NOT NULL DEFAULT '',
		driving_license_number TEXT NOT NULL DEFAULT '',
		driving_license_category TEXT NOT NULL DEFAULT '',
		company_name TEXT NOT NULL DEFAULT '',
		nip VARCHAR(16) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_clients_email_lower ON clients (lower(email));`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		model TEXT NOT NULL,
		class TEXT NOT NULL,
		vin VARCHAR(32) NOT NULL DEFAULT '',
		registration VARCHAR(16) NOT NULL DEFAULT '',
		premium BOOLEAN NOT NULL DEFAULT FALSE,
		inspection_valid_until DATE,
		insurance_valid_until DATE
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_number VARCHAR(32) NOT NULL,
		client_id UUID NOT NULL REFERENCES clients(id),
		inquiry_id UUID,
		tenant JSONB NOT NULL,
		vehicle_snapshot JSONB NOT NULL,
		additional_vehicles JSONB NOT NULL DEFAULT '[]',
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		value NUMERIC(12,2) NOT NULL,
		full_payment_as_reservation BOOLEAN NOT NULL DEFAULT FALSE,
		deposit_override NUMERIC(12,2),
		payments JSONB NOT NULL,
		status contract_status NOT NULL DEFAULT 'pending',
		folder_name TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	// Not unique: historical pools can contain numbers issued twice by racing sessions.
	`CREATE INDEX IF NOT EXISTS idx_contracts_number ON contracts (contract_number);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_client_id ON contracts (client_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
