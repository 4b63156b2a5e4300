package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/odds-tracker/internal/models"
)

// fakeS3 is an in-memory bucket
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestS3StoreAppendListLoad(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := NewS3StoreWithClient(client, "odds", "ledger")

	t1 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Minute)

	ref2, err := store.Append(ctx, testSnapshot(t2, "2.5"))
	require.NoError(t, err)
	_, err = store.Append(ctx, testSnapshot(t1, "3.0"))
	require.NoError(t, err)

	assert.Contains(t, client.objects, "ledger/"+ref2.Key)

	// nested and foreign objects are ignored
	client.objects["ledger/archive/"+KeyFor(t1)] = []byte("{}")
	client.objects["ledger/readme.md"] = []byte("hi")

	refs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, KeyFor(t1), refs[0].Key)
	assert.Equal(t, KeyFor(t2), refs[1].Key)

	snap, err := store.Load(ctx, refs[1])
	require.NoError(t, err)
	assert.True(t, snap.Runners[1].Odds.Equal(models.MustParseOdds("2.5")))
	assert.NoError(t, store.Ping(ctx))
}

func TestS3StoreRejectsExistingKey(t *testing.T) {
	ctx := context.Background()
	store := NewS3StoreWithClient(newFakeS3(), "odds", "ledger/")
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Append(ctx, testSnapshot(ts, "3.0"))
	require.NoError(t, err)
	_, err = store.Append(ctx, testSnapshot(ts, "9.0"))
	assert.ErrorIs(t, err, models.ErrStorageWrite)
}

func TestS3StoreErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	client.putErr = errors.New("access denied")
	store := NewS3StoreWithClient(client, "odds", "")

	_, err := store.Append(ctx, testSnapshot(time.Now(), "3.0"))
	assert.ErrorIs(t, err, models.ErrStorageWrite)

	_, err = store.Load(ctx, Ref{Key: KeyFor(time.Now())})
	assert.ErrorIs(t, err, models.ErrCorruptSnapshot)

	client.objects[KeyFor(time.Unix(0, 0))] = []byte("garbage")
	_, err = store.Load(ctx, Ref{Key: KeyFor(time.Unix(0, 0))})
	assert.ErrorIs(t, err, models.ErrCorruptSnapshot)
}
