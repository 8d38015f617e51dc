// ABOUTME: Session persistence: resolve-or-create upsert, attribute refresh and status transitions
// ABOUTME: Every write runs in its own transaction; the reconnect counter is incremented in SQL

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sessionSelect = `
	SELECT id, uid, online, joined, last_online, sessions,
	       public_ip, mac_address, local_ip, username, administrator,
	       platform, device, architecture, latitude, longitude, owner
	FROM tbl_sessions
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var joined, lastOnline sql.NullString
	var publicIP, mac, localIP, username, platform, device, arch, owner sql.NullString
	var lat, lon sql.NullFloat64

	err := row.Scan(
		&s.ID, &s.UID, &s.Online, &joined, &lastOnline, &s.Sessions,
		&publicIP, &mac, &localIP, &username, &s.Administrator,
		&platform, &device, &arch, &lat, &lon, &owner,
	)
	if err != nil {
		return nil, err
	}

	if s.Joined, err = parseTime("joined", joined); err != nil {
		return nil, err
	}
	if s.LastOnline, err = parseTime("last_online", lastOnline); err != nil {
		return nil, err
	}

	s.PublicIP = publicIP.String
	s.MACAddress = mac.String
	s.LocalIP = localIP.String
	s.Username = username.String
	s.Platform = platform.String
	s.Device = device.String
	s.Architecture = arch.String
	s.Owner = owner.String
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lon.Valid {
		s.Longitude = &lon.Float64
	}
	return &s, nil
}

func getSessionTx(ctx context.Context, tx *sql.Tx, loc Locator) (*Session, error) {
	where, arg := loc.clause()
	s, err := scanSession(tx.QueryRowContext(ctx, sessionSelect+" WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", loc, err)
	}
	return s, nil
}

// ResolveSession inserts candidate if no session with its uid exists, or
// records a reconnect on the existing row otherwise. A reconnect increments
// the sessions counter by exactly one, marks the session online and stamps
// last_online; descriptive columns are left as stored.
// The returned bool reports whether a new row was created.
func (s *SQLiteStore) ResolveSession(ctx context.Context, candidate *Session, now time.Time) (*Session, bool, error) {
	if candidate.UID == "" {
		return nil, false, errors.New("resolving session: uid is required")
	}

	var (
		resolved *Session
		created  bool
	)
	err := s.withTx(ctx, "resolve session", func(tx *sql.Tx) error {
		loc := ByUID(candidate.UID)
		_, err := getSessionTx(ctx, tx, loc)
		switch {
		case errors.Is(err, ErrNotFound):
			if err := insertSessionTx(ctx, tx, candidate); err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			_, err := tx.ExecContext(ctx, `
				UPDATE tbl_sessions
				SET sessions = sessions + 1, online = 1, last_online = ?
				WHERE uid = ?
			`, now.UTC().Format(timeFormat), candidate.UID)
			if err != nil {
				return fmt.Errorf("recording reconnect: %w", err)
			}
		}

		resolved, err = getSessionTx(ctx, tx, loc)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug("resolved session", "uid", resolved.UID, "new", created, "sessions", resolved.Sessions)
	return resolved, created, nil
}

func insertSessionTx(ctx context.Context, tx *sql.Tx, sess *Session) error {
	sessions := sess.Sessions
	if sessions <= 0 {
		sessions = 1
	}
	lastOnline := sess.LastOnline
	if lastOnline.IsZero() {
		lastOnline = time.Now()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO tbl_sessions (
			uid, online, joined, last_online, sessions,
			public_ip, mac_address, local_ip, username, administrator,
			platform, device, architecture, latitude, longitude, owner
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sess.UID,
		sess.Online,
		formatTime(sess.Joined),
		formatTime(lastOnline),
		sessions,
		nullString(sess.PublicIP),
		nullString(sess.MACAddress),
		nullString(sess.LocalIP),
		nullString(sess.Username),
		sess.Administrator,
		nullString(sess.Platform),
		nullString(sess.Device),
		nullString(sess.Architecture),
		nullFloat(sess.Latitude),
		nullFloat(sess.Longitude),
		nullString(sess.Owner),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// UpdateSessionAttributes overwrites the supplied descriptive attributes of
// an existing session. Returns ErrNotFound if the uid is unknown.
func (s *SQLiteStore) UpdateSessionAttributes(ctx context.Context, uid string, attrs Attributes) (*Session, error) {
	var updated *Session
	err := s.withTx(ctx, "update session attributes", func(tx *sql.Tx) error {
		sess, err := getSessionTx(ctx, tx, ByUID(uid))
		if err != nil {
			return err
		}
		attrs.ApplyTo(sess)

		_, err = tx.ExecContext(ctx, `
			UPDATE tbl_sessions
			SET public_ip = ?, mac_address = ?, local_ip = ?, username = ?, administrator = ?,
			    platform = ?, device = ?, architecture = ?, latitude = ?, longitude = ?, owner = ?
			WHERE id = ?
		`,
			nullString(sess.PublicIP),
			nullString(sess.MACAddress),
			nullString(sess.LocalIP),
			nullString(sess.Username),
			sess.Administrator,
			nullString(sess.Platform),
			nullString(sess.Device),
			nullString(sess.Architecture),
			nullFloat(sess.Latitude),
			nullFloat(sess.Longitude),
			nullString(sess.Owner),
			sess.ID,
		)
		if err != nil {
			return fmt.Errorf("updating session attributes: %w", err)
		}
		updated = sess
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("updated session attributes", "uid", uid)
	return updated, nil
}

// GetSession retrieves a session by uid or row id.
// Returns ErrNotFound if the session doesn't exist.
func (s *SQLiteStore) GetSession(ctx context.Context, loc Locator) (*Session, error) {
	var sess *Session
	err := s.withTx(ctx, "get session", func(tx *sql.Tx) error {
		var err error
		sess, err = getSessionTx(ctx, tx, loc)
		return err
	})
	return sess, err
}

// SetStatus marks a session online or offline. Going offline also stamps
// last_online; going online leaves it untouched.
// Returns ErrNotFound if the locator matches no session.
func (s *SQLiteStore) SetStatus(ctx context.Context, loc Locator, online bool, now time.Time) error {
	where, arg := loc.clause()

	err := s.withTx(ctx, "set status", func(tx *sql.Tx) error {
		var (
			result sql.Result
			err    error
		)
		if online {
			result, err = tx.ExecContext(ctx, `UPDATE tbl_sessions SET online = 1 WHERE `+where, arg)
		} else {
			result, err = tx.ExecContext(ctx, `UPDATE tbl_sessions SET online = 0, last_online = ? WHERE `+where,
				now.UTC().Format(timeFormat), arg)
		}
		if err != nil {
			return fmt.Errorf("updating status: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("updated session status", "session", loc.String(), "online", online)
	return nil
}

// ListSessions returns every session in the store's natural order.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	err := s.withTx(ctx, "list sessions", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, sessionSelect)
		if err != nil {
			return fmt.Errorf("querying sessions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			sess, err := scanSession(rows)
			if err != nil {
				return fmt.Errorf("scanning session row: %w", err)
			}
			sessions = append(sessions, sess)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating session rows: %w", err)
		}
		return nil
	})
	return sessions, err
}

// ListSessionSummaries returns uid, public_ip and platform of every session.
func (s *SQLiteStore) ListSessionSummaries(ctx context.Context) ([]SessionSummary, error) {
	var summaries []SessionSummary
	err := s.withTx(ctx, "list session summaries", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT uid, public_ip, platform FROM tbl_sessions`)
		if err != nil {
			return fmt.Errorf("querying session summaries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var sum SessionSummary
			var publicIP, platform sql.NullString
			if err := rows.Scan(&sum.UID, &publicIP, &platform); err != nil {
				return fmt.Errorf("scanning session summary: %w", err)
			}
			sum.PublicIP = publicIP.String
			sum.Platform = platform.String
			summaries = append(summaries, sum)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating session summaries: %w", err)
		}
		return nil
	})
	return summaries, err
}
