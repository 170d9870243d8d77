package spot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWatchlist = `Key,Type,MilOnly,Description,Image
A12345,IA,,Some specific aircraft,specific.jpg
N174SY,RN,,ERJ-170 operated by SkyWest,
H47,TC,y,CH-47 Chinook,chinook.jpg
P8,TC,n,P-8 Poseidon,
badrow,RN
ZZ999,XX,,unknown kind code,
N174SY,RN,,last row wins,
`

func loadTestWatchlist(t *testing.T, contents string) *Watchlist {
	t.Helper()
	w := NewWatchlist(log.NewNopLogger())
	w.load(strings.NewReader(contents))
	return w
}

func TestWatchlistLoad(t *testing.T) {
	w := loadTestWatchlist(t, testWatchlist)
	// header and the two bad rows are not entries
	assert.Equal(t, 4, w.Len())

	entry, ok := w.Lookup(KindAddress, "A12345")
	require.True(t, ok)
	assert.Equal(t, "Some specific aircraft", entry.Description)
	assert.Equal(t, "specific.jpg", entry.Image)

	entry, ok = w.Lookup(KindType, "H47")
	require.True(t, ok)
	assert.True(t, entry.MilOnly)

	entry, ok = w.Lookup(KindType, "P8")
	require.True(t, ok)
	assert.False(t, entry.MilOnly)
}

func TestWatchlistDuplicateKeyLastRowWins(t *testing.T) {
	w := loadTestWatchlist(t, testWatchlist)
	entry, ok := w.Lookup(KindRegistration, "N174SY")
	require.True(t, ok)
	assert.Equal(t, "last row wins", entry.Description)
}

func TestWatchlistNamespacesAreIndependent(t *testing.T) {
	w := loadTestWatchlist(t, "SAME,IA,,address entry,\nSAME,TC,n,type entry,\n")
	entry, ok := w.Lookup(KindAddress, "SAME")
	require.True(t, ok)
	assert.Equal(t, "address entry", entry.Description)
	entry, ok = w.Lookup(KindType, "SAME")
	require.True(t, ok)
	assert.Equal(t, "type entry", entry.Description)
	_, ok = w.Lookup(KindRegistration, "SAME")
	assert.False(t, ok)
}

func TestWatchlistBadRowsDoNotAbortLoad(t *testing.T) {
	// the valid row after the short row still loads
	w := loadTestWatchlist(t, "short,RN\nN1BR,RN,,Cessna 240,\n")
	assert.Equal(t, 1, w.Len())
	_, ok := w.Lookup(KindRegistration, "N1BR")
	assert.True(t, ok)
}

func TestWatchlistBOMTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.csv")
	contents := "\xef\xbb\xbfKey,Type,MilOnly,Description,Image\nA12345,IA,,with BOM,\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	w := LoadWatchlist(log.NewNopLogger(), path)
	_, ok := w.Lookup(KindAddress, "A12345")
	assert.True(t, ok)
}

func TestWatchlistMissingFileDegradesToEmpty(t *testing.T) {
	w := LoadWatchlist(log.NewNopLogger(), "/nonexistent/watchlist.csv")
	require.NotNil(t, w)
	assert.Equal(t, 0, w.Len())
	_, ok := w.Lookup(KindAddress, "A12345")
	assert.False(t, ok)
}
