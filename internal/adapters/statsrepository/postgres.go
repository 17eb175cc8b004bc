package statsrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pedroanisio/tracker-gg-api/internal/domain"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
	"github.com/pedroanisio/tracker-gg-api/internal/strutils"
)

type PostgresStatsRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresStatsRepository(db *sqlx.DB, schema string) *PostgresStatsRepository {
	return &PostgresStatsRepository{db, schema}
}

type dbPlayer struct {
	ID          string    `db:"id"`
	RiotID      string    `db:"riot_id"`
	Username    string    `db:"username"`
	Tag         string    `db:"tag"`
	FirstSeen   time.Time `db:"first_seen"`
	LastUpdated time.Time `db:"last_updated"`
}

type dbSegment struct {
	ID            string    `db:"id"`
	PlayerRiotID  string    `db:"player_riot_id"`
	SegmentType   string    `db:"segment_type"`
	SegmentKey    string    `db:"segment_key"`
	Playlist      string    `db:"playlist"`
	SeasonID      string    `db:"season_id"`
	SchemaVersion string    `db:"schema_version"`
	DisplayName   string    `db:"display_name"`
	ExpiryDate    time.Time `db:"expiry_date"`
	CapturedAt    time.Time `db:"captured_at"`
	Source        string    `db:"source"`
}

type dbStatistic struct {
	SegmentID       string  `db:"segment_id"`
	StatName        string  `db:"stat_name"`
	DisplayName     string  `db:"display_name"`
	DisplayCategory string  `db:"display_category"`
	Category        string  `db:"category"`
	Value           float64 `db:"value"`
	DisplayValue    string  `db:"display_value"`
	DisplayType     string  `db:"display_type"`
}

type dbTimelinePoint struct {
	PlayerRiotID string    `db:"player_riot_id"`
	Playlist     string    `db:"playlist"`
	Date         time.Time `db:"date"`
	Playtime     int       `db:"playtime"`
	KDRatio      float64   `db:"kd_ratio"`
	Placement    float64   `db:"placement"`
	Score        float64   `db:"score"`
	Kills        int       `db:"kills"`
	Deaths       int       `db:"deaths"`
	HSAccuracy   float64   `db:"hs_accuracy"`
	Matches      int       `db:"matches"`
	Wins         int       `db:"wins"`
	Losses       int       `db:"losses"`
	WinPct       float64   `db:"win_pct"`
	ADR          float64   `db:"adr"`
	CapturedAt   time.Time `db:"captured_at"`
}

type dbPartyStatistic struct {
	PlayerRiotID string    `db:"player_riot_id"`
	Playlist     string    `db:"playlist"`
	PartyNumber  int       `db:"party_number"`
	KDRatio      float64   `db:"kd_ratio"`
	Placement    float64   `db:"placement"`
	Matches      int       `db:"matches"`
	Wins         int       `db:"wins"`
	Losses       int       `db:"losses"`
	WinPct       float64   `db:"win_pct"`
	CapturedAt   time.Time `db:"captured_at"`
}

type dbIngestionLogEntry struct {
	Operation        string    `db:"operation"`
	Source           string    `db:"source"`
	PlayerRiotID     string    `db:"player_riot_id"`
	Status           string    `db:"status"`
	RecordsProcessed int       `db:"records_processed"`
	RecordsInserted  int       `db:"records_inserted"`
	RecordsUpdated   int       `db:"records_updated"`
	Details          string    `db:"details"`
	StartedAt        time.Time `db:"started_at"`
	CompletedAt      time.Time `db:"completed_at"`
}

// begin starts a transaction with the repository schema on the search
// path. Callers must Commit; the returned transaction is safe to
// Rollback unconditionally via defer.
func (r *PostgresStatsRepository) begin(ctx context.Context) (*sqlx.Tx, error) {
	txx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(r.schema)))
	if err != nil {
		txx.Rollback()
		return nil, fmt.Errorf("failed to set search path: %w", err)
	}

	return txx, nil
}

func (r *PostgresStatsRepository) TouchPlayer(ctx context.Context, riotID string, updatedAt time.Time) error {
	username, tag, err := strutils.ParseRiotID(riotID)
	if err != nil {
		err := fmt.Errorf("%w: %w", domain.ErrInvalidRiotID, err)
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return err
	}

	dbID, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate db id: %w", err)
		reporting.Report(ctx, err)
		return err
	}

	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(
		ctx,
		`INSERT INTO players (id, riot_id, username, tag, first_seen, last_updated)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (riot_id) DO UPDATE SET last_updated = EXCLUDED.last_updated`,
		dbID.String(),
		riotID,
		username,
		tag,
		updatedAt,
	)
	if err != nil {
		err := fmt.Errorf("failed to upsert player: %w", err)
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return err
	}

	return txx.Commit()
}

func (r *PostgresStatsRepository) GetPlayer(ctx context.Context, riotID string) (*domain.Player, error) {
	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}
	defer txx.Rollback()

	var player dbPlayer
	err = txx.GetContext(ctx, &player, "SELECT * FROM players WHERE riot_id = $1", riotID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		err := fmt.Errorf("failed to query player: %w", err)
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}

	return &domain.Player{
		ID:          player.ID,
		RiotID:      player.RiotID,
		Username:    player.Username,
		Tag:         player.Tag,
		FirstSeen:   player.FirstSeen,
		LastUpdated: player.LastUpdated,
	}, nil
}

func (r *PostgresStatsRepository) UpsertSegment(ctx context.Context, segment domain.Segment) (bool, error) {
	dbID, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate db id: %w", err)
		reporting.Report(ctx, err)
		return false, err
	}

	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": segment.RiotID})
		return false, err
	}
	defer txx.Rollback()

	var segmentID string
	var inserted bool
	err = txx.QueryRowxContext(
		ctx,
		`INSERT INTO player_segments (
			id, player_riot_id, segment_type, segment_key, playlist,
			season_id, schema_version, display_name, expiry_date, captured_at, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (player_riot_id, segment_type, segment_key, playlist) DO UPDATE SET
			season_id = EXCLUDED.season_id,
			schema_version = EXCLUDED.schema_version,
			display_name = EXCLUDED.display_name,
			expiry_date = EXCLUDED.expiry_date,
			captured_at = EXCLUDED.captured_at,
			source = EXCLUDED.source
		RETURNING id, (xmax = 0) AS inserted`,
		dbID.String(),
		segment.RiotID,
		string(segment.Type),
		segment.Key,
		segment.Playlist,
		segment.SeasonID,
		segment.SchemaVersion,
		segment.DisplayName,
		segment.ExpiryDate,
		segment.CapturedAt,
		segment.Source,
	).Scan(&segmentID, &inserted)
	if err != nil {
		err := fmt.Errorf("failed to upsert segment: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"riotID":     segment.RiotID,
			"segmentKey": segment.Key,
		})
		return false, err
	}

	for _, statistic := range segment.Stats {
		statID, err := uuid.NewV7()
		if err != nil {
			err := fmt.Errorf("failed to generate db id: %w", err)
			reporting.Report(ctx, err)
			return false, err
		}

		_, err = txx.ExecContext(
			ctx,
			`INSERT INTO statistic_values (
				id, segment_id, stat_name, display_name, display_category,
				category, value, display_value, display_type
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (segment_id, stat_name) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				display_category = EXCLUDED.display_category,
				category = EXCLUDED.category,
				value = EXCLUDED.value,
				display_value = EXCLUDED.display_value,
				display_type = EXCLUDED.display_type`,
			statID.String(),
			segmentID,
			statistic.Name,
			statistic.DisplayName,
			statistic.DisplayCategory,
			statistic.Category,
			statistic.Value,
			statistic.DisplayValue,
			statistic.DisplayType,
		)
		if err != nil {
			err := fmt.Errorf("failed to upsert statistic %q: %w", statistic.Name, err)
			reporting.Report(ctx, err, map[string]string{
				"riotID":     segment.RiotID,
				"segmentKey": segment.Key,
			})
			return false, err
		}
	}

	if err := txx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit segment upsert: %w", err)
	}
	return inserted, nil
}

func (r *PostgresStatsRepository) UpsertTimelinePoint(ctx context.Context, point domain.TimelinePoint) (bool, error) {
	dbID, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate db id: %w", err)
		reporting.Report(ctx, err)
		return false, err
	}

	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": point.RiotID})
		return false, err
	}
	defer txx.Rollback()

	var inserted bool
	err = txx.QueryRowxContext(
		ctx,
		`INSERT INTO timeline_points (
			id, player_riot_id, playlist, date, playtime, kd_ratio, placement,
			score, kills, deaths, hs_accuracy, matches, wins, losses, win_pct,
			adr, captured_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (player_riot_id, playlist, date) DO UPDATE SET
			playtime = EXCLUDED.playtime,
			kd_ratio = EXCLUDED.kd_ratio,
			placement = EXCLUDED.placement,
			score = EXCLUDED.score,
			kills = EXCLUDED.kills,
			deaths = EXCLUDED.deaths,
			hs_accuracy = EXCLUDED.hs_accuracy,
			matches = EXCLUDED.matches,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			win_pct = EXCLUDED.win_pct,
			adr = EXCLUDED.adr,
			captured_at = EXCLUDED.captured_at
		RETURNING (xmax = 0) AS inserted`,
		dbID.String(),
		point.RiotID,
		point.Playlist,
		point.Date,
		point.Playtime,
		point.KDRatio,
		point.Placement,
		point.Score,
		point.Kills,
		point.Deaths,
		point.HSAccuracy,
		point.Matches,
		point.Wins,
		point.Losses,
		point.WinPct,
		point.ADR,
		point.CapturedAt,
	).Scan(&inserted)
	if err != nil {
		err := fmt.Errorf("failed to upsert timeline point: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"riotID":   point.RiotID,
			"playlist": point.Playlist,
		})
		return false, err
	}

	if err := txx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit timeline upsert: %w", err)
	}
	return inserted, nil
}

func (r *PostgresStatsRepository) UpsertPartyStatistic(ctx context.Context, statistic domain.PartyStatistic) (bool, error) {
	dbID, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate db id: %w", err)
		reporting.Report(ctx, err)
		return false, err
	}

	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": statistic.RiotID})
		return false, err
	}
	defer txx.Rollback()

	var inserted bool
	err = txx.QueryRowxContext(
		ctx,
		`INSERT INTO party_statistics (
			id, player_riot_id, playlist, party_number, kd_ratio, placement,
			matches, wins, losses, win_pct, captured_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (player_riot_id, playlist, party_number) DO UPDATE SET
			kd_ratio = EXCLUDED.kd_ratio,
			placement = EXCLUDED.placement,
			matches = EXCLUDED.matches,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			win_pct = EXCLUDED.win_pct,
			captured_at = EXCLUDED.captured_at
		RETURNING (xmax = 0) AS inserted`,
		dbID.String(),
		statistic.RiotID,
		statistic.Playlist,
		statistic.PartyNumber,
		statistic.KDRatio,
		statistic.Placement,
		statistic.Matches,
		statistic.Wins,
		statistic.Losses,
		statistic.WinPct,
		statistic.CapturedAt,
	).Scan(&inserted)
	if err != nil {
		err := fmt.Errorf("failed to upsert party statistic: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"riotID":   statistic.RiotID,
			"playlist": statistic.Playlist,
		})
		return false, err
	}

	if err := txx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit party statistic upsert: %w", err)
	}
	return inserted, nil
}

func (r *PostgresStatsRepository) AppendIngestionLog(ctx context.Context, entry domain.IngestionLogEntry) error {
	dbID, err := uuid.NewV7()
	if err != nil {
		err := fmt.Errorf("failed to generate db id: %w", err)
		reporting.Report(ctx, err)
		return err
	}

	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": entry.RiotID})
		return err
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(
		ctx,
		`INSERT INTO ingestion_log (
			id, operation, source, player_riot_id, status, records_processed,
			records_inserted, records_updated, details, started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		dbID.String(),
		entry.Operation,
		entry.Source,
		entry.RiotID,
		entry.Status,
		entry.RecordsProcessed,
		entry.RecordsInserted,
		entry.RecordsUpdated,
		entry.Details,
		entry.StartedAt,
		entry.CompletedAt,
	)
	if err != nil {
		err := fmt.Errorf("failed to append ingestion log entry: %w", err)
		reporting.Report(ctx, err, map[string]string{"riotID": entry.RiotID})
		return err
	}

	return txx.Commit()
}

func (r *PostgresStatsRepository) GetSegments(ctx context.Context, riotID string) ([]domain.Segment, error) {
	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}
	defer txx.Rollback()

	var dbSegments []dbSegment
	err = txx.SelectContext(
		ctx,
		&dbSegments,
		`SELECT * FROM player_segments WHERE player_riot_id = $1
		ORDER BY segment_type, playlist, segment_key`,
		riotID,
	)
	if err != nil {
		err := fmt.Errorf("failed to query segments: %w", err)
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}

	segments := make([]domain.Segment, 0, len(dbSegments))
	for _, s := range dbSegments {
		var dbStats []dbStatistic
		err = txx.SelectContext(
			ctx,
			&dbStats,
			`SELECT segment_id, stat_name, display_name, display_category, category,
				value, display_value, display_type
			FROM statistic_values WHERE segment_id = $1 ORDER BY stat_name`,
			s.ID,
		)
		if err != nil {
			err := fmt.Errorf("failed to query statistics: %w", err)
			reporting.Report(ctx, err, map[string]string{"riotID": riotID})
			return nil, err
		}

		stats := make([]domain.Statistic, 0, len(dbStats))
		for _, stat := range dbStats {
			stats = append(stats, domain.Statistic{
				Name:            stat.StatName,
				DisplayName:     stat.DisplayName,
				DisplayCategory: stat.DisplayCategory,
				Category:        stat.Category,
				Value:           stat.Value,
				DisplayValue:    stat.DisplayValue,
				DisplayType:     stat.DisplayType,
			})
		}

		segments = append(segments, domain.Segment{
			RiotID:        s.PlayerRiotID,
			Type:          domain.SegmentType(s.SegmentType),
			Key:           s.SegmentKey,
			Playlist:      s.Playlist,
			SeasonID:      s.SeasonID,
			SchemaVersion: s.SchemaVersion,
			DisplayName:   s.DisplayName,
			ExpiryDate:    s.ExpiryDate,
			CapturedAt:    s.CapturedAt,
			Source:        s.Source,
			Stats:         stats,
		})
	}

	return segments, nil
}

func (r *PostgresStatsRepository) GetTimeline(ctx context.Context, riotID string, playlist string) ([]domain.TimelinePoint, error) {
	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}
	defer txx.Rollback()

	var dbPoints []dbTimelinePoint
	err = txx.SelectContext(
		ctx,
		&dbPoints,
		`SELECT player_riot_id, playlist, date, playtime, kd_ratio, placement,
			score, kills, deaths, hs_accuracy, matches, wins, losses, win_pct,
			adr, captured_at
		FROM timeline_points WHERE player_riot_id = $1 AND playlist = $2
		ORDER BY date`,
		riotID,
		playlist,
	)
	if err != nil {
		err := fmt.Errorf("failed to query timeline: %w", err)
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}

	points := make([]domain.TimelinePoint, 0, len(dbPoints))
	for _, p := range dbPoints {
		points = append(points, domain.TimelinePoint{
			RiotID:     p.PlayerRiotID,
			Playlist:   p.Playlist,
			Date:       p.Date,
			Playtime:   p.Playtime,
			KDRatio:    p.KDRatio,
			Placement:  p.Placement,
			Score:      p.Score,
			Kills:      p.Kills,
			Deaths:     p.Deaths,
			HSAccuracy: p.HSAccuracy,
			Matches:    p.Matches,
			Wins:       p.Wins,
			Losses:     p.Losses,
			WinPct:     p.WinPct,
			ADR:        p.ADR,
			CapturedAt: p.CapturedAt,
		})
	}

	return points, nil
}

func (r *PostgresStatsRepository) GetPartyStatistics(ctx context.Context, riotID string, playlist string) ([]domain.PartyStatistic, error) {
	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}
	defer txx.Rollback()

	var dbStats []dbPartyStatistic
	err = txx.SelectContext(
		ctx,
		&dbStats,
		`SELECT player_riot_id, playlist, party_number, kd_ratio, placement,
			matches, wins, losses, win_pct, captured_at
		FROM party_statistics WHERE player_riot_id = $1 AND playlist = $2
		ORDER BY party_number`,
		riotID,
		playlist,
	)
	if err != nil {
		err := fmt.Errorf("failed to query party statistics: %w", err)
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}

	statistics := make([]domain.PartyStatistic, 0, len(dbStats))
	for _, s := range dbStats {
		statistics = append(statistics, domain.PartyStatistic{
			RiotID:      s.PlayerRiotID,
			Playlist:    s.Playlist,
			PartyNumber: s.PartyNumber,
			KDRatio:     s.KDRatio,
			Placement:   s.Placement,
			Matches:     s.Matches,
			Wins:        s.Wins,
			Losses:      s.Losses,
			WinPct:      s.WinPct,
			CapturedAt:  s.CapturedAt,
		})
	}

	return statistics, nil
}

func (r *PostgresStatsRepository) GetIngestionLog(ctx context.Context, riotID string, limit int) ([]domain.IngestionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	txx, err := r.begin(ctx)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}
	defer txx.Rollback()

	var dbEntries []dbIngestionLogEntry
	err = txx.SelectContext(
		ctx,
		&dbEntries,
		`SELECT operation, source, player_riot_id, status, records_processed,
			records_inserted, records_updated, details, started_at, completed_at
		FROM ingestion_log WHERE player_riot_id = $1
		ORDER BY started_at DESC LIMIT $2`,
		riotID,
		limit,
	)
	if err != nil {
		err := fmt.Errorf("failed to query ingestion log: %w", err)
		reporting.Report(ctx, err, map[string]string{"riotID": riotID})
		return nil, err
	}

	entries := make([]domain.IngestionLogEntry, 0, len(dbEntries))
	for _, e := range dbEntries {
		entries = append(entries, domain.IngestionLogEntry{
			Operation:        e.Operation,
			Source:           e.Source,
			RiotID:           e.PlayerRiotID,
			Status:           e.Status,
			RecordsProcessed: e.RecordsProcessed,
			RecordsInserted:  e.RecordsInserted,
			RecordsUpdated:   e.RecordsUpdated,
			Details:          e.Details,
			StartedAt:        e.StartedAt,
			CompletedAt:      e.CompletedAt,
		})
	}

	return entries, nil
}
