// Package persistence provides SQLite-based checkpoint and log storage.
// The engine treats it as an injected capability: checkpoints snapshot
// the (graph, agents, post log, rng state, tick) tuple between ticks,
// and a resumed run continues bit-identically from the stored state.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/socionet/internal/agents"
	"github.com/talgya/socionet/internal/engine"
	"github.com/talgya/socionet/internal/entropy"
	"github.com/talgya/socionet/internal/graph"
)

// ErrNoCheckpoint is returned when a resume finds no stored state. A
// resume that cannot load prior state must fail rather than silently
// restart.
var ErrNoCheckpoint = errors.New("no checkpoint in database")

// DB wraps a SQLite connection for simulation state persistence.
type DB struct {
	conn  *sqlx.DB
	runID string
}

// Open opens or creates a SQLite database at the given path and stamps
// it with the run identity.
func Open(path, runID string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, runID: runID}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		opinion REAL NOT NULL,
		active INTEGER NOT NULL,
		inactive_ticks INTEGER NOT NULL,
		check_regularity REAL NOT NULL,
		inclin_interact REAL NOT NULL,
		desired_input_count INTEGER NOT NULL,
		feed_min_weight INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS edges (
		from_id INTEGER NOT NULL,
		to_id INTEGER NOT NULL,
		PRIMARY KEY (from_id, to_id)
	);

	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY,
		opinion REAL NOT NULL,
		weight INTEGER NOT NULL,
		source_agent INTEGER NOT NULL,
		published_at INTEGER NOT NULL,
		seen INTEGER NOT NULL,
		likes INTEGER NOT NULL,
		dislikes INTEGER NOT NULL,
		reposts INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feeds (
		agent_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		post_id INTEGER NOT NULL,
		PRIMARY KEY (agent_id, position)
	);

	CREATE TABLE IF NOT EXISTS tick_log (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		opinion REAL NOT NULL,
		perceived REAL NOT NULL,
		check_regularity REAL NOT NULL,
		inclin_interact REAL NOT NULL,
		desired_input_count INTEGER NOT NULL,
		inactive_ticks INTEGER NOT NULL,
		indegree INTEGER NOT NULL,
		outdegree INTEGER NOT NULL,
		active INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		tick INTEGER NOT NULL,
		from_id INTEGER NOT NULL,
		to_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tick_log_tick ON tick_log(tick);
	CREATE INDEX IF NOT EXISTS idx_snapshots_tick ON snapshots(tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveCheckpoint writes the full run state in one transaction: agents,
// edges, post log, feeds, and the meta cursor (tick + rng state), so a
// resume restores the exact generator stream, not a reseed.
func (db *DB) SaveCheckpoint(st *engine.State, rng *entropy.Stream) error {
	rngState, err := rng.MarshalState()
	if err != nil {
		return err
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"agents", "edges", "posts", "feeds"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	agentStmt, err := tx.Preparex(`INSERT INTO agents
		(id, opinion, active, inactive_ticks, check_regularity,
		 inclin_interact, desired_input_count, feed_min_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer agentStmt.Close()

	for _, a := range st.Agents {
		active := 0
		if a.Active {
			active = 1
		}
		if _, err := agentStmt.Exec(
			a.ID, a.Opinion, active, a.InactiveTicks,
			a.CheckRegularity, a.InclinInteract, a.DesiredInputCount, a.FeedMinWeight,
		); err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	for _, edge := range st.Graph.Edges() {
		if _, err := tx.Exec("INSERT INTO edges (from_id, to_id) VALUES (?, ?)", edge.From, edge.To); err != nil {
			return fmt.Errorf("insert edge %d->%d: %w", edge.From, edge.To, err)
		}
	}

	postStmt, err := tx.Preparex(`INSERT INTO posts
		(id, opinion, weight, source_agent, published_at, seen, likes, dislikes, reposts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer postStmt.Close()

	for _, p := range st.PostLog {
		if _, err := postStmt.Exec(
			p.ID, p.Opinion, p.Weight, p.SourceAgent, p.PublishedAt,
			p.SeenBy, p.LikeCount, p.DislikeCount, p.ShareCount,
		); err != nil {
			return fmt.Errorf("insert post %d: %w", p.ID, err)
		}
	}

	// Feed entries reference post log rows; every delivered post is in
	// the log, so references always resolve on load.
	for _, a := range st.Agents {
		for pos, p := range a.Feed {
			if _, err := tx.Exec(
				"INSERT INTO feeds (agent_id, position, post_id) VALUES (?, ?, ?)",
				a.ID, pos, p.ID,
			); err != nil {
				return fmt.Errorf("insert feed entry for agent %d: %w", a.ID, err)
			}
		}
	}

	for key, value := range map[string]string{
		"run_id":    db.runID,
		"last_tick": strconv.FormatUint(st.Tick, 10),
		"rng_state": rngState,
	} {
		if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// HasCheckpoint reports whether the database holds a saved run.
func (db *DB) HasCheckpoint() bool {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM meta WHERE key = 'last_tick'"); err != nil {
		return false
	}
	return count > 0
}

// LoadCheckpoint restores the saved run state and the serialized rng
// state that accompanies it.
func (db *DB) LoadCheckpoint() (*engine.State, string, error) {
	if !db.HasCheckpoint() {
		return nil, "", ErrNoCheckpoint
	}

	type agentRow struct {
		ID                int     `db:"id"`
		Opinion           float64 `db:"opinion"`
		Active            int     `db:"active"`
		InactiveTicks     int     `db:"inactive_ticks"`
		CheckRegularity   float64 `db:"check_regularity"`
		InclinInteract    float64 `db:"inclin_interact"`
		DesiredInputCount int     `db:"desired_input_count"`
		FeedMinWeight     int     `db:"feed_min_weight"`
	}
	var agentRows []agentRow
	if err := db.conn.Select(&agentRows, "SELECT * FROM agents ORDER BY id"); err != nil {
		return nil, "", fmt.Errorf("load agents: %w", err)
	}
	if len(agentRows) == 0 {
		return nil, "", ErrNoCheckpoint
	}

	pop := make([]*agents.Agent, 0, len(agentRows))
	for _, row := range agentRows {
		pop = append(pop, &agents.Agent{
			ID:                agents.AgentID(row.ID),
			Opinion:           row.Opinion,
			Active:            row.Active != 0,
			InactiveTicks:     row.InactiveTicks,
			CheckRegularity:   row.CheckRegularity,
			InclinInteract:    row.InclinInteract,
			DesiredInputCount: row.DesiredInputCount,
			FeedMinWeight:     row.FeedMinWeight,
		})
	}

	g := graph.New(len(pop))
	type edgeRow struct {
		From int `db:"from_id"`
		To   int `db:"to_id"`
	}
	var edgeRows []edgeRow
	if err := db.conn.Select(&edgeRows, "SELECT from_id, to_id FROM edges ORDER BY from_id, to_id"); err != nil {
		return nil, "", fmt.Errorf("load edges: %w", err)
	}
	for _, row := range edgeRows {
		if err := g.Follow(agents.AgentID(row.From), agents.AgentID(row.To)); err != nil {
			return nil, "", fmt.Errorf("restore edge %d->%d: %w", row.From, row.To, err)
		}
	}

	type postRow struct {
		ID          int     `db:"id"`
		Opinion     float64 `db:"opinion"`
		Weight      int     `db:"weight"`
		SourceAgent int     `db:"source_agent"`
		PublishedAt uint64  `db:"published_at"`
		Seen        int     `db:"seen"`
		Likes       int     `db:"likes"`
		Dislikes    int     `db:"dislikes"`
		Reposts     int     `db:"reposts"`
	}
	var postRows []postRow
	if err := db.conn.Select(&postRows, "SELECT * FROM posts ORDER BY id"); err != nil {
		return nil, "", fmt.Errorf("load posts: %w", err)
	}
	postLog := make([]*agents.Post, 0, len(postRows))
	byID := make(map[int]*agents.Post, len(postRows))
	for _, row := range postRows {
		p := &agents.Post{
			ID:           row.ID,
			Opinion:      row.Opinion,
			Weight:       row.Weight,
			SourceAgent:  agents.AgentID(row.SourceAgent),
			PublishedAt:  row.PublishedAt,
			SeenBy:       row.Seen,
			LikeCount:    row.Likes,
			DislikeCount: row.Dislikes,
			ShareCount:   row.Reposts,
		}
		postLog = append(postLog, p)
		byID[p.ID] = p
	}

	type feedRow struct {
		AgentID  int `db:"agent_id"`
		Position int `db:"position"`
		PostID   int `db:"post_id"`
	}
	var feedRows []feedRow
	if err := db.conn.Select(&feedRows, "SELECT agent_id, position, post_id FROM feeds ORDER BY agent_id, position"); err != nil {
		return nil, "", fmt.Errorf("load feeds: %w", err)
	}
	for _, row := range feedRows {
		p, ok := byID[row.PostID]
		if !ok {
			return nil, "", fmt.Errorf("feed entry for agent %d references missing post %d", row.AgentID, row.PostID)
		}
		if row.AgentID < 1 || row.AgentID > len(pop) {
			return nil, "", fmt.Errorf("feed entry references unknown agent %d", row.AgentID)
		}
		pop[row.AgentID-1].Feed = append(pop[row.AgentID-1].Feed, p)
	}

	tickStr, err := db.GetMeta("last_tick")
	if err != nil {
		return nil, "", fmt.Errorf("load tick cursor: %w", err)
	}
	tick, err := strconv.ParseUint(tickStr, 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("parse tick cursor %q: %w", tickStr, err)
	}

	rngState, err := db.GetMeta("rng_state")
	if err != nil {
		return nil, "", fmt.Errorf("load rng state: %w", err)
	}

	st := &engine.State{Graph: g, Agents: pop, PostLog: postLog, Tick: tick}
	slog.Info("checkpoint restored",
		"tick", tick,
		"agents", len(pop),
		"edges", g.EdgeCount(),
		"posts", len(postLog),
	)
	return st, rngState, nil
}

// AppendTickLog appends per-agent tick records.
func (db *DB) AppendTickLog(records []engine.TickRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO tick_log
		(agent_id, tick, opinion, perceived, check_regularity, inclin_interact,
		 desired_input_count, inactive_ticks, indegree, outdegree, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		active := 0
		if rec.Active {
			active = 1
		}
		if _, err := stmt.Exec(
			rec.AgentID, rec.Tick, rec.Opinion, rec.Perceived,
			rec.CheckRegularity, rec.InclinInteract, rec.DesiredInput,
			rec.InactiveTicks, rec.InDegree, rec.OutDegree, active,
		); err != nil {
			return fmt.Errorf("insert tick record: %w", err)
		}
	}
	return tx.Commit()
}

// SaveSnapshots appends periodic graph snapshots as edge lists.
func (db *DB) SaveSnapshots(snaps []engine.GraphSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, snap := range snaps {
		for _, edge := range snap.Edges {
			if _, err := tx.Exec(
				"INSERT INTO snapshots (tick, from_id, to_id) VALUES (?, ?, ?)",
				snap.Tick, edge.From, edge.To,
			); err != nil {
				return fmt.Errorf("insert snapshot edge at tick %d: %w", snap.Tick, err)
			}
		}
	}
	return tx.Commit()
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	if err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: meta key %q", ErrNoCheckpoint, key)
		}
		return "", err
	}
	return value, nil
}
