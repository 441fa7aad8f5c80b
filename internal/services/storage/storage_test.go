package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a multipart.FileHeader the way fiber hands one to a handler.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(MaxPhotoSize))

	fhs := req.MultipartForm.File["photo"]
	require.Len(t, fhs, 1)
	return fhs[0]
}

func TestCheckPhoto(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		wantErr  error
	}{
		{"png", "leak.png", []byte("png"), nil},
		{"upper case jpeg", "LEAK.JPEG", []byte("jpg"), nil},
		{"gif", "a.gif", []byte("gif"), nil},
		{"webp not allowed", "a.webp", []byte("webp"), ErrUnsupportedType},
		{"no extension", "photo", []byte("x"), ErrUnsupportedType},
		{"empty", "empty.png", nil, ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := checkPhoto(fileHeader(t, tt.filename, tt.content))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLocalSave(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "http://localhost:8080")

	url, err := store.Save(context.Background(), fileHeader(t, "Sink.PNG", []byte("fake image")), "job_42")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/jobs/job_42_"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	saved := filepath.Join(dir, "jobs", filepath.Base(url))
	got, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "fake image", string(got))
}

func TestLocalSaveRejectsBadType(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "http://localhost:8080")

	_, err := store.Save(context.Background(), fileHeader(t, "script.exe", []byte("MZ")), "job")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, statErr := os.Stat(filepath.Join(dir, "jobs"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteFileRemovesPartialFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "half.png")
	src := io.MultiReader(strings.NewReader("first bytes"), iotest.ErrReader(errors.New("connection reset")))

	err := writeFile(dst, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "partial file is removed")
}

func TestLocalDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "http://localhost:8080")
	ctx := context.Background()

	url, err := store.Save(ctx, fileHeader(t, "sink.png", []byte("img")), "job_7")
	require.NoError(t, err)
	saved := filepath.Join(dir, "jobs", filepath.Base(url))
	require.FileExists(t, saved)

	require.NoError(t, store.Delete(ctx, url))
	assert.NoFileExists(t, saved)

	assert.NoError(t, store.Delete(ctx, url), "deleting twice is fine")
	assert.Error(t, store.Delete(ctx, "http://localhost:8080/uploads/jobs/"))
	assert.Error(t, store.Delete(ctx, "http://localhost:8080/uploads/jobs/notes.txt"))
}

type fakePutter struct {
	input   *s3.PutObjectInput
	body    []byte
	err     error
	deleted []string
}

func (f *fakePutter) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Save(t *testing.T) {
	putter := &fakePutter{}
	store := &S3{Client: putter, Bucket: "homeguard-photos", Region: "us-east-1"}

	url, err := store.Save(context.Background(), fileHeader(t, "ac.jpg", []byte("jpeg bytes")), "job_1")
	require.NoError(t, err)

	require.NotNil(t, putter.input)
	key := aws.ToString(putter.input.Key)
	assert.True(t, strings.HasPrefix(key, "jobs/job_1_"), key)
	assert.Equal(t, "homeguard-photos", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(putter.input.ContentType))
	assert.Equal(t, "jpeg bytes", string(putter.body))
	assert.Equal(t, "https://homeguard-photos.s3.us-east-1.amazonaws.com/"+key, url)

	store.PublicURL = "https://cdn.example.com"
	url, err = store.Save(context.Background(), fileHeader(t, "ac.gif", []byte("gif")), "job_1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+aws.ToString(putter.input.Key), url)
}

func TestS3Delete(t *testing.T) {
	putter := &fakePutter{}
	store := &S3{Client: putter, Bucket: "homeguard-photos", Region: "us-east-1"}

	url, err := store.Save(context.Background(), fileHeader(t, "ac.jpg", []byte("jpeg")), "job_1")
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), url))
	assert.Equal(t, []string{aws.ToString(putter.input.Key)}, putter.deleted)

	putter.err = errors.New("access denied")
	assert.Error(t, store.Delete(context.Background(), url))
}

func TestS3SaveErrors(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	store := &S3{Client: putter, Bucket: "b", Region: "us-east-1"}

	_, err := store.Save(context.Background(), fileHeader(t, "ac.png", []byte("x")), "job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	putter.input = nil
	_, err = store.Save(context.Background(), fileHeader(t, "ac.bmp", []byte("x")), "job")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Nil(t, putter.input, "nothing is uploaded for rejected files")
}
