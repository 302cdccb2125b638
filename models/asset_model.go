package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AssetModel provides access to the assets table.
type AssetModel struct {
	db *sqlx.DB
}

// NewAssetModel creates an AssetModel backed by db.
func NewAssetModel(db *sqlx.DB) *AssetModel {
	return &AssetModel{db: db}
}

// CreateAsset records a newly stored file and returns it with its id set.
func (m *AssetModel) CreateAsset(ctx context.Context, asset *Asset) (*Asset, error) {
	res, err := m.db.NamedExecContext(ctx,
		`INSERT INTO assets (asset_project_id, asset_type, asset_name, asset_size)
		 VALUES (:asset_project_id, :asset_type, :asset_name, :asset_size)`, asset)
	if err != nil {
		return nil, fmt.Errorf("creating asset %q: %w", asset.AssetName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new asset id: %w", err)
	}

	var created Asset
	err = m.db.GetContext(ctx, &created,
		`SELECT id, asset_project_id, asset_type, asset_name, asset_size, created_at
		 FROM assets WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("re-reading asset %q: %w", asset.AssetName, err)
	}
	return &created, nil
}

// GetAllProjectAssets lists a project's assets of the given type in creation
// order.
func (m *AssetModel) GetAllProjectAssets(ctx context.Context, projectID int64, assetType string) ([]Asset, error) {
	var assets []Asset
	err := m.db.SelectContext(ctx, &assets,
		`SELECT id, asset_project_id, asset_type, asset_name, asset_size, created_at
		 FROM assets WHERE asset_project_id = ? AND asset_type = ? ORDER BY id`,
		projectID, assetType)
	if err != nil {
		return nil, fmt.Errorf("listing assets for project %d: %w", projectID, err)
	}
	return assets, nil
}

// GetAssetRecord finds a project's asset by stored name. Returns nil when the
// asset does not exist.
func (m *AssetModel) GetAssetRecord(ctx context.Context, projectID int64, assetName string) (*Asset, error) {
	var asset Asset
	err := m.db.GetContext(ctx, &asset,
		`SELECT id, asset_project_id, asset_type, asset_name, asset_size, created_at
		 FROM assets WHERE asset_project_id = ? AND asset_name = ?`,
		projectID, assetName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up asset %q: %w", assetName, err)
	}
	return &asset, nil
}
