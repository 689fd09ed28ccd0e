package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/ValueArena/config"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"openai/gpt-5.1", "openai_gpt-5.1"},
		{"x-ai/grok-4.1-fast:free", "x-ai_grok-4.1-fast_free"},
		{"plain", "plain"},
		{"", "_"},
		{"..", "__"},
		{"a b\\c", "a_b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeKey(tt.in), tt.in)
	}
}

// runStoreContract checks the behaviour every backend shares.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "openai/gpt-5.1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "openai/gpt-5.1", []byte(`{"v":1}`)))
	require.NoError(t, s.Put(ctx, "anthropic/claude", []byte(`{"v":2}`)))
	require.NoError(t, s.Put(ctx, "openai/gpt-5.1", []byte(`{"v":3}`)))

	got, err := s.Get(ctx, "openai/gpt-5.1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":3}`, string(got))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic_claude", "openai_gpt-5.1"}, keys)

	require.NoError(t, s.Close())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	runStoreContract(t, s)

	assert.FileExists(t, filepath.Join(dir, "openai_gpt-5.1.json"))
}

func TestFileStore_KeysOnMissingDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope"))
	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledgers.db"))
	require.NoError(t, err)
	runStoreContract(t, s)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func TestS3Store(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWithClient(fake, "bucket", "portfolios/")
	runStoreContract(t, s)

	_, ok := fake.objects["portfolios/openai_gpt-5.1.json"]
	assert.True(t, ok)
}

func TestS3Store_GetError(t *testing.T) {
	s := NewS3StoreWithClient(failingS3{}, "bucket", "")
	_, err := s.Get(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

type failingS3 struct{ fakeS3 }

func (failingS3) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, errors.New("access denied")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir, StorageBackend: config.StorageFile}
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	cfg.StorageBackend = config.StorageSQLite
	cfg.SQLitePath = filepath.Join(dir, "l.db")
	s, err = Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	cfg.StorageBackend = "redis"
	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}
