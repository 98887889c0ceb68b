package likes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Sullygrrr/digger/repository"
	"github.com/go-sql-driver/mysql"
)

var trackCols = []string{
	"id", "user_id", "title", "description", "audio_url", "media_url",
	"media_type", "tags", "platforms", "likes", "created_at",
}

func trackRow(likes int) *sqlmock.Rows {
	return sqlmock.NewRows(trackCols).AddRow(
		"t1", int64(42), "Night Drive", "", "audio/t1.mp3", "", "",
		[]byte(`["Lofi"," Trap "]`), []byte(`{}`), likes, time.Now())
}

func newLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	ledger := NewLedger(db, repository.NewMySQLAffinityRepository(db))
	return ledger, mock, func() { db.Close() }
}

func expectLike(mock sqlmock.Sqlmock, likes int) {
	mock.ExpectBegin()
	mock.ExpectQuery("FROM tracks WHERE id = \\? FOR UPDATE").
		WithArgs("t1").
		WillReturnRows(trackRow(likes))
	mock.ExpectQuery("SELECT 1 FROM track_likes").
		WithArgs("t1", int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("UPDATE tracks SET likes = likes \\+ 1").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO track_likes").
		WithArgs("t1", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Tags are normalized before the counters move.
	mock.ExpectExec("INSERT INTO user_tag_stats").
		WithArgs(int64(7), "lofi", 1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_tag_stats").
		WithArgs(int64(7), "trap", 1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM user_tag_stats WHERE user_id = \\? AND cnt = 0").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO liked_tracks").
		WithArgs(int64(7), "t1", int64(42), "Night Drive", "", "audio/t1.mp3", "", "",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func expectUnlike(mock sqlmock.Sqlmock, likes int) {
	mock.ExpectBegin()
	mock.ExpectQuery("FROM tracks WHERE id = \\? FOR UPDATE").
		WithArgs("t1").
		WillReturnRows(trackRow(likes))
	mock.ExpectQuery("SELECT 1 FROM track_likes").
		WithArgs("t1", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("UPDATE tracks SET likes = GREATEST").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM track_likes").
		WithArgs("t1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_tag_stats").
		WithArgs(int64(7), "lofi", -1, -1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_tag_stats").
		WithArgs(int64(7), "trap", -1, -1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM user_tag_stats WHERE user_id = \\? AND cnt = 0").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM liked_tracks").
		WithArgs(int64(7), "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestToggleLike(t *testing.T) {
	ledger, mock, cleanup := newLedger(t)
	defer cleanup()

	expectLike(mock, 10)

	res, err := ledger.Toggle(context.Background(), 7, "t1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !res.Liked {
		t.Fatalf("Result.Liked = false, want true")
	}
	if res.Likes != 11 {
		t.Fatalf("Result.Likes = %d, want 11", res.Likes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleUnlike(t *testing.T) {
	ledger, mock, cleanup := newLedger(t)
	defer cleanup()

	expectUnlike(mock, 11)

	res, err := ledger.Toggle(context.Background(), 7, "t1")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if res.Liked {
		t.Fatalf("Result.Liked = true, want false")
	}
	if res.Likes != 10 {
		t.Fatalf("Result.Likes = %d, want 10", res.Likes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleTwiceRestoresState(t *testing.T) {
	ledger, mock, cleanup := newLedger(t)
	defer cleanup()

	expectLike(mock, 10)
	expectUnlike(mock, 11)

	first, err := ledger.Toggle(context.Background(), 7, "t1")
	if err != nil {
		t.Fatalf("first Toggle: %v", err)
	}
	second, err := ledger.Toggle(context.Background(), 7, "t1")
	if err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	if !first.Liked || second.Liked {
		t.Fatalf("toggle pair = (%v, %v), want (true, false)", first.Liked, second.Liked)
	}
	if second.Likes != 10 {
		t.Fatalf("Likes after double toggle = %d, want 10", second.Likes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleTrackNotFound(t *testing.T) {
	ledger, mock, cleanup := newLedger(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM tracks WHERE id = \\? FOR UPDATE").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := ledger.Toggle(context.Background(), 7, "missing")
	if !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("Toggle error = %v, want ErrTrackNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleRetriesOnDeadlock(t *testing.T) {
	ledger, mock, cleanup := newLedger(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM tracks WHERE id = \\? FOR UPDATE").
		WithArgs("t1").
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	mock.ExpectRollback()
	expectLike(mock, 10)

	res, err := ledger.Toggle(context.Background(), 7, "t1")
	if err != nil {
		t.Fatalf("Toggle after retry: %v", err)
	}
	if !res.Liked || res.Likes != 11 {
		t.Fatalf("Result = %+v, want liked with 11 likes", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleDoesNotRetryPlainErrors(t *testing.T) {
	ledger, mock, cleanup := newLedger(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM tracks WHERE id = \\? FOR UPDATE").
		WithArgs("t1").
		WillReturnError(errors.New("connection gone"))
	mock.ExpectRollback()

	_, err := ledger.Toggle(context.Background(), 7, "t1")
	if !errors.Is(err, ErrToggleFailed) {
		t.Fatalf("Toggle error = %v, want ErrToggleFailed", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
