package sink

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofrs/flock"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sramlab/pufrecon/internal/render"
)

func testGrid() *render.Grid {
	g := render.NewGrid(3, 2, 255)
	g.Set(0, 0, 0)
	g.Set(2, 1, 128)
	return g
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(testGrid())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	r, _, _, _ := img.At(2, 1).RGBA()
	assert.Equal(t, uint32(128), r>>8)

	_, err = EncodePNG(nil)
	assert.Error(t, err)
}

func TestFileSink_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "RECOVER_BMPs")
	s := NewFileSink(dir)

	require.NoError(t, s.Write(context.Background(), "chip1_recovered", testGrid()))
	require.NoError(t, s.Write(context.Background(), "overlay.png", testGrid()))

	_, err := os.Stat(filepath.Join(dir, "chip1_recovered.png"))
	require.NoError(t, err)
	_, err = os.Stat(s.Path("overlay.png"))
	require.NoError(t, err)

	// no temp files left behind
	matches, err := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileSink_LockHeld(t *testing.T) {
	dir := t.TempDir()
	held := flock.New(filepath.Join(dir, LockName))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = held.Unlock() }()

	s := &FileSink{Dir: dir, LockTimeout: 50 * time.Millisecond}
	err = s.Write(context.Background(), "x", testGrid())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.LockTimeout = time.Minute
	err = s.Write(ctx, "x", testGrid())
	assert.ErrorIs(t, err, context.Canceled)
}

type mockS3 struct{ mock.Mock }

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestS3Sink_Write(t *testing.T) {
	client := new(mockS3)
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "puf" && *in.Key == "runs/a/chip1.png" && *in.ContentType == ContentType
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	s := NewS3Sink(client, "puf", "runs/a")
	require.NoError(t, s.Write(context.Background(), "chip1", testGrid()))
	client.AssertExpectations(t)
}

func TestS3Sink_Error(t *testing.T) {
	client := new(mockS3)
	boom := errors.New("denied")
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, boom).Once()

	err := NewS3Sink(client, "puf", "").Write(context.Background(), "chip1", testGrid())
	assert.ErrorIs(t, err, boom)
}

type fakeMinio struct {
	bucket, key string
	body        []byte
	opts        minio.PutObjectOptions
	err         error
}

func (f *fakeMinio) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.bucket, f.key, f.body, f.opts = bucket, key, body, opts
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestMinioSink_Write(t *testing.T) {
	f := &fakeMinio{}
	s := NewMinioSink(f, "puf", "segments")
	require.NoError(t, s.Write(context.Background(), "seg_consensus", testGrid()))

	assert.Equal(t, "puf", f.bucket)
	assert.Equal(t, "segments/seg_consensus.png", f.key)
	assert.Equal(t, ContentType, f.opts.ContentType)
	_, err := png.Decode(bytes.NewReader(f.body))
	assert.NoError(t, err)

	f.err = errors.New("offline")
	assert.Error(t, s.Write(context.Background(), "x", testGrid()))
}
