package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	key := NewKey(BucketFull, "Cover.JPG")
	assert.True(t, strings.HasPrefix(key, "full/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, NewKey(BucketFull, "Cover.JPG"))
}

func TestCleanKey(t *testing.T) {
	for _, bad := range []string{"", "/etc/passwd", "../secret", "full/../../x", `full\x.png`, "full//x.png", "."} {
		_, err := cleanKey(bad)
		assert.Error(t, err, bad)
	}
	got, err := cleanKey("thumbnail/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "thumbnail/abc.png", got)
}

func TestLocal_SaveOpenDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "full/a.png", strings.NewReader("first"), "image/png"))
	require.NoError(t, store.Save(ctx, "full/a.png", strings.NewReader("second"), "image/png"))

	rc, err := store.Open(ctx, "full/a.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "full"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")

	assert.Equal(t, "/media/full/a.png", store.URL("full/a.png"))
	assert.Equal(t, "", store.URL(""))

	require.NoError(t, store.Delete(ctx, "full/a.png"))
	require.NoError(t, store.Delete(ctx, "full/a.png"))
	_, err = store.Open(ctx, "full/a.png")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Save(ctx, "../escape.png", strings.NewReader("x"), ""))
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_SaveOpenDelete(t *testing.T) {
	fake := newFakeS3()
	store := newS3WithClient(fake, "animeverse-media", "https://cdn.example.com/")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "thumbnail/b.webp", strings.NewReader("img"), "image/webp"))
	assert.Equal(t, "image/webp", fake.types["animeverse-media/thumbnail/b.webp"])

	rc, err := store.Open(ctx, "thumbnail/b.webp")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "img", string(data))

	assert.Equal(t, "https://cdn.example.com/thumbnail/b.webp", store.URL("thumbnail/b.webp"))

	require.NoError(t, store.Delete(ctx, "thumbnail/b.webp"))
	_, err = store.Open(ctx, "thumbnail/b.webp")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Save(ctx, "/abs", strings.NewReader("x"), ""))
}
