package files

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageExtension(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.webp"} {
		_, err := ImageExtension(name)
		assert.NoError(t, err, name)
	}

	_, err := ImageExtension("plan.pdf")
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	_, err = ImageExtension("noext")
	assert.Error(t, err)
}

func TestNewKey(t *testing.T) {
	k1 := NewKey("projects", "p1", ".png")
	k2 := NewKey("projects", "p1", ".png")
	assert.True(t, strings.HasPrefix(k1, "projects/p1/"))
	assert.True(t, strings.HasSuffix(k1, ".png"))
	assert.NotEqual(t, k1, k2)
}

func TestLocalStore_PutDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "projects/p1/a.png", strings.NewReader("png-bytes"), "image/png"))
	b, err := os.ReadFile(filepath.Join(dir, "projects", "p1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))
	assert.Equal(t, "/media/projects/p1/a.png", s.URL("projects/p1/a.png"))

	require.NoError(t, s.Delete(ctx, "projects/p1/a.png"))
	_, err = os.Stat(filepath.Join(dir, "projects", "p1", "a.png"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, s.Delete(ctx, "projects/p1/a.png"))
}

func TestLocalStore_KeyCannotEscapeRoot(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "media"), "/media")
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "../../evil.png", strings.NewReader("x"), "image/png"))
	_, err = os.Stat(filepath.Join(dir, "media", "evil.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "evil.png"))
	assert.True(t, os.IsNotExist(err))
}

type fakeS3 struct {
	puts    map[string]string
	deletes []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, _ := io.ReadAll(in.Body)
	f.puts[*in.Bucket+"/"+*in.Key] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	api := &fakeS3{puts: map[string]string{}}
	s := newS3Store(api, "vulcano", "https://cdn.example.com/")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "avatars/u1/x.jpg", strings.NewReader("jpg"), "image/jpeg"))
	assert.Equal(t, "jpg", api.puts["vulcano/avatars/u1/x.jpg"])

	require.NoError(t, s.Delete(ctx, "avatars/u1/x.jpg"))
	require.NoError(t, s.Delete(ctx, ""))
	assert.Equal(t, []string{"vulcano/avatars/u1/x.jpg"}, api.deletes)

	assert.Equal(t, "https://cdn.example.com/avatars/u1/x.jpg", s.URL("avatars/u1/x.jpg"))
	assert.Equal(t, "", s.URL(""))
}
