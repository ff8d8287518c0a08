package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotmix/internal/models"
	"github.com/desertthunder/spotmix/internal/shared"
)

const generationColumns = `id, sequence, mode, genre, user_id, playlist_id, playlist_name, requested, added, strategy, created_at`

// GenerationRepository implements [models.Repository] for the [models.Generation] history log.
type GenerationRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Generation] = (*GenerationRepository)(nil)

// NewGenerationRepository creates a new [GenerationRepository] with the given database connection
func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// Create inserts a generation with a generated ID and sequence
func (r *GenerationRepository) Create(g *models.Generation) error {
	sequence, err := NextSequence(r.db, "generations")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	g.SetID(shared.GenerateID())
	g.SetSequence(sequence)

	if err := g.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO generations (` + generationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		g.ID(),
		g.Sequence(),
		string(g.Mode()),
		g.Genre(),
		g.UserID(),
		g.PlaylistID(),
		g.PlaylistName(),
		g.Requested(),
		g.Added(),
		g.Strategy(),
		g.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation: %w", err)
	}

	return nil
}

// Get retrieves a generation by ID
func (r *GenerationRepository) Get(id string) (*models.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = ?`

	g, err := scanGeneration(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("generation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query generation: %w", err)
	}
	return g, nil
}

// List retrieves generations newest first.
//
// Supported criteria: "user_id" (string), "mode" (models.Mode or string), "limit" (int).
func (r *GenerationRepository) List(criteria map[string]any) ([]*models.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE 1 = 1`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	switch mode := criteria["mode"].(type) {
	case models.Mode:
		query += " AND mode = ?"
		args = append(args, string(mode))
	case string:
		if mode != "" {
			query += " AND mode = ?"
			args = append(args, mode)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var generations []*models.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		generations = append(generations, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return generations, nil
}

// ListRecent returns up to limit of userID's most recent generations. An empty userID lists every user.
func (r *GenerationRepository) ListRecent(userID string, limit int) ([]*models.Generation, error) {
	return r.List(map[string]any{"user_id": userID, "limit": limit})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*models.Generation, error) {
	var (
		id           string
		sequence     int
		mode         string
		genre        string
		userID       string
		playlistID   string
		playlistName string
		requested    int
		added        int
		strategy     string
		createdAt    time.Time
	)

	err := row.Scan(&id, &sequence, &mode, &genre, &userID, &playlistID, &playlistName, &requested, &added, &strategy, &createdAt)
	if err != nil {
		return nil, err
	}

	g := models.NewGeneration(sequence, models.Mode(mode), genre, userID, playlistID, playlistName, requested, added, strategy)
	g.SetID(id)
	g.SetCreatedAt(createdAt)
	return g, nil
}
