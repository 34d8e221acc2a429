package bot

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeFiles struct {
	opened string
}

func (f *fakeFiles) FileURLByID(fileID string) (string, error) {
	return "https://api.telegram.org/file/botTOKEN/" + fileID, nil
}

func (f *fakeFiles) File(file *tele.File) (io.ReadCloser, error) {
	f.opened = file.FileID
	return io.NopCloser(strings.NewReader("png")), nil
}

func TestMediaResolverFileURL(t *testing.T) {
	files := &fakeFiles{}

	proxied := NewMediaResolver(files, "https://bot.example/")
	u, err := proxied.FileURL("AgAC/x y")
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example/media/AgAC%2Fx%20y", u)
	assert.NotContains(t, u, "TOKEN")

	direct := NewMediaResolver(files, "")
	u, err = direct.FileURL("AgAC")
	require.NoError(t, err)
	assert.Equal(t, "https://api.telegram.org/file/botTOKEN/AgAC", u)
}

func TestMediaResolverOpen(t *testing.T) {
	files := &fakeFiles{}
	rc, err := NewMediaResolver(files, "").Open("AgAC")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png", string(body))
	assert.Equal(t, "AgAC", files.opened)
}
