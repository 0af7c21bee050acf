package leads

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRepositoryAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	repo := NewCSVRepository(path)
	ctx := context.Background()
	now := time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, NewMessengerLead("42", "voucher", "asked, twice", now)))
	require.NoError(t, repo.Append(ctx, NewMessengerLead("43", "trade-in", "", now)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Contains(t, lines[1], `"asked, twice"`)

	leads, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "facebook:42", leads[0].Channel)
	assert.Equal(t, "2024-01-03T15:00:00Z", leads[0].Created)
}

func TestCSVRepositoryMissingFile(t *testing.T) {
	repo := NewCSVRepository(filepath.Join(t.TempDir(), "none.csv"))
	leads, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestCSVRepositoryReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	repo := NewCSVRepository(path)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, NewMessengerLead("1", "credit", "", time.Now())))

	replacement := []Lead{{Name: "Jane Doe", Phone: "5551234567", Stage: "Won"}}
	require.NoError(t, repo.Replace(ctx, replacement))

	leads, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, replacement, leads)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestAppendRequiresContact(t *testing.T) {
	err := NewInMemoryRepository().Append(context.Background(), Lead{Name: "Nobody"})
	assert.ErrorIs(t, err, ErrMissingContact)
}

func TestParseCSV(t *testing.T) {
	t.Run("bom and extra columns", func(t *testing.T) {
		src := "\ufeffName,Phone,Favourite Color\nJane Doe,5551234567,blue\n,,\n"
		leads, err := ParseCSV(strings.NewReader(src))
		require.NoError(t, err)
		require.Len(t, leads, 1)
		assert.Equal(t, "Jane Doe", leads[0].Name)
		assert.Equal(t, StageNew, leads[0].Stage)
	})
	t.Run("missing name column", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader("Email\na@b.c\n"))
		assert.ErrorIs(t, err, ErrInvalidCSV)
	})
	t.Run("missing contact columns", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader("Name\nJane\n"))
		assert.ErrorIs(t, err, ErrInvalidCSV)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrInvalidCSV)
	})
}

func TestPostgresRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	ctx := context.Background()
	lead := NewMessengerLead("42", "voucher", "", time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC))

	mock.ExpectExec("INSERT INTO leads").WithArgs(leadArgs(lead)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Append(ctx, lead))

	cols := []string{"created", "name", "email", "phone", "secondary_phone", "stage", "source", "channel", "owner", "labels", "details"}
	mock.ExpectQuery("SELECT created").WillReturnRows(pgxmock.NewRows(cols).AddRow(leadArgs(lead)...))
	leads, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Lead{lead}, leads)

	replacement := Lead{Name: "Jane Doe", Phone: "5551234567"}
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM leads").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO leads").WithArgs(leadArgs(replacement)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Replace(ctx, []Lead{replacement}))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryReplaceRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM leads").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("INSERT INTO leads").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err = NewPostgresRepository(mock).Replace(context.Background(), []Lead{{Name: "x", Phone: "1"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
