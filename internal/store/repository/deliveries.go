package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/fortuna/crease/internal/store"
)

const deliveryColumnCount = 14

// DeliveryRepository handles ball-by-ball data access
type DeliveryRepository struct {
	db store.Executor
}

// NewDeliveryRepository creates a new delivery repository. db may be a transaction.
func NewDeliveryRepository(db store.Executor) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// InsertBatch writes rows with a single multi-row INSERT. Batches that would
// exceed the dialect's bind parameter limit are split; the number of
// statements executed is returned.
func (r *DeliveryRepository) InsertBatch(ctx context.Context, rows []store.Delivery) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	perStatement := r.db.Dialect().MaxParams() / deliveryColumnCount
	statements := 0
	for start := 0; start < len(rows); start += perStatement {
		end := min(start+perStatement, len(rows))
		if err := r.insertChunk(ctx, rows[start:end]); err != nil {
			return statements, err
		}
		statements++
	}
	return statements, nil
}

func (r *DeliveryRepository) insertChunk(ctx context.Context, rows []store.Delivery) error {
	var b strings.Builder
	b.WriteString(`
		INSERT INTO deliveries (
			match_id, innings_no, over_no, ball_no, batting_team, bowling_team,
			batter_id, bowler_id, non_striker_id,
			runs_batter, runs_extras, wicket_type, player_out_id, fielder_id
		)
		VALUES `)

	args := make([]any, 0, len(rows)*deliveryColumnCount)
	for i, d := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for col := 1; col <= deliveryColumnCount; col++ {
			if col > 1 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", len(args)+col)
		}
		b.WriteByte(')')

		args = append(args,
			d.MatchID, d.InningsNo, d.OverNo, d.BallNo, d.BattingTeam, d.BowlingTeam,
			d.BatterID, d.BowlerID, d.NonStrikerID,
			d.RunsBatter, d.RunsExtras, d.WicketType, d.PlayerOutID, d.FielderID,
		)
	}

	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("inserting deliveries: %w", store.ClassifyError(err))
	}
	return nil
}

// GetByInnings returns the deliveries of one innings in bowling order.
func (r *DeliveryRepository) GetByInnings(ctx context.Context, matchID int64, inningsNo int) ([]*store.Delivery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, innings_no, over_no, ball_no, batting_team, bowling_team,
			batter_id, bowler_id, non_striker_id,
			runs_batter, runs_extras, wicket_type, player_out_id, fielder_id
		FROM deliveries
		WHERE match_id = $1 AND innings_no = $2
		ORDER BY over_no, ball_no
	`, matchID, inningsNo)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*store.Delivery
	for rows.Next() {
		d := &store.Delivery{}
		err := rows.Scan(
			&d.MatchID, &d.InningsNo, &d.OverNo, &d.BallNo, &d.BattingTeam, &d.BowlingTeam,
			&d.BatterID, &d.BowlerID, &d.NonStrikerID,
			&d.RunsBatter, &d.RunsExtras, &d.WicketType, &d.PlayerOutID, &d.FielderID,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// CountByMatch returns how many deliveries are stored for a match.
func (r *DeliveryRepository) CountByMatch(ctx context.Context, matchID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliveries WHERE match_id = $1`, matchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting deliveries: %w", err)
	}
	return n, nil
}
