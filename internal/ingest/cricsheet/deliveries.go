package cricsheet

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/metrics"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// inningsKeys are the resolved values shared by every ball of one innings.
type inningsKeys struct {
	matchID   int64
	inningsNo int
	batting   int64
	bowling   int64
}

// loadDeliveries builds the rows for one innings into a buffer owned by this
// call and flushes them before returning, so nothing carries over between
// innings. It returns the number of rows written.
func (i *Ingester) loadDeliveries(ctx context.Context, q store.Executor, ids *IDMap, keys inningsKeys, inn *Innings) (int, error) {
	rows, err := i.buildDeliveries(ctx, q, ids, keys, inn)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	statements, err := repository.NewDeliveryRepository(q).InsertBatch(ctx, rows)
	if err != nil {
		return 0, err
	}
	metrics.DeliveriesInserted.Add(float64(len(rows)))

	i.logger.Debug("Inserted deliveries",
		zap.Int64("match_id", keys.matchID),
		zap.Int("innings_no", keys.inningsNo),
		zap.Int("rows", len(rows)),
		zap.Int("statements", statements),
	)
	return len(rows), nil
}

func (i *Ingester) buildDeliveries(ctx context.Context, q store.Executor, ids *IDMap, keys inningsKeys, inn *Innings) ([]store.Delivery, error) {
	var total int
	for _, over := range inn.Overs {
		total += len(over.Deliveries)
	}
	rows := make([]store.Delivery, 0, total)

	for _, over := range inn.Overs {
		for b := range over.Deliveries {
			del := &over.Deliveries[b]

			row := store.Delivery{
				MatchID:     keys.matchID,
				InningsNo:   keys.inningsNo,
				OverNo:      *over.Over,
				BallNo:      b + 1,
				BattingTeam: keys.batting,
				BowlingTeam: keys.bowling,
				RunsBatter:  *del.Runs.Batter,
				RunsExtras:  *del.Runs.Extras,
			}

			var err error
			if row.BatterID, err = i.players.Resolve(ctx, q, ids, del.Batter); err != nil {
				return nil, err
			}
			if row.BowlerID, err = i.players.Resolve(ctx, q, ids, del.Bowler); err != nil {
				return nil, err
			}
			if row.NonStrikerID, err = i.players.Resolve(ctx, q, ids, del.NonStriker); err != nil {
				return nil, err
			}

			if len(del.Wickets) > 0 {
				if err := i.applyWicket(ctx, q, ids, &row, &del.Wickets[0]); err != nil {
					return nil, err
				}
			}

			rows = append(rows, row)
		}
	}
	return rows, nil
}

// applyWicket records the first wicket of a ball. Only the first listed
// fielder is kept; dismissals without fielders store NULL.
func (i *Ingester) applyWicket(ctx context.Context, q store.Executor, ids *IDMap, row *store.Delivery, w *Wicket) error {
	row.WicketType = sql.NullString{String: w.Kind, Valid: true}

	outID, err := i.players.Resolve(ctx, q, ids, w.PlayerOut)
	if err != nil {
		return err
	}
	row.PlayerOutID = sql.NullInt64{Int64: outID, Valid: true}

	if len(w.Fielders) > 0 {
		fielderID, err := i.players.Resolve(ctx, q, ids, w.Fielders[0].Name)
		if err != nil {
			return err
		}
		row.FielderID = sql.NullInt64{Int64: fielderID, Valid: true}
	}
	return nil
}
