package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"mime/multipart"
	"sync"
)

const (
	defaultUploadType = "application/octet-stream"
	uploadChunkSize   = 32 << 10
	uploadQueueSize   = 4
)

// FileUpload is a file part of a multipart body. Its content arrives as a
// bounded stream of chunks; the stream ends with io.EOF, or with the error
// that interrupted the upload.
type FileUpload struct {
	err         error
	chunks      chan []byte
	Field       string
	Filename    string
	ContentType string
	mu          sync.Mutex
}

func newFileUpload(field, filename, contentType string) *FileUpload {
	if contentType == "" {
		contentType = defaultUploadType
	}
	return &FileUpload{
		Field:       field,
		Filename:    filename,
		ContentType: contentType,
		chunks:      make(chan []byte, uploadQueueSize),
	}
}

// Next returns the next chunk. It returns io.EOF after the last chunk.
func (f *FileUpload) Next(ctx context.Context) ([]byte, error) {
	select {
	case chunk, ok := <-f.chunks:
		if !ok {
			return nil, f.streamErr()
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Chunks iterates over the remaining chunks. A failed upload yields its
// error once and stops.
func (f *FileUpload) Chunks(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			chunk, err := f.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Reader returns an io.Reader over the remaining content.
func (f *FileUpload) Reader(ctx context.Context) io.Reader {
	return &uploadReader{ctx: ctx, up: f}
}

// Bytes reads the remaining content into memory.
func (f *FileUpload) Bytes(ctx context.Context) ([]byte, error) {
	return io.ReadAll(f.Reader(ctx))
}

func (f *FileUpload) streamErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		return io.EOF
	}
	return f.err
}

// fill copies src into the chunk queue, blocking while the queue is full.
func (f *FileUpload) fill(ctx context.Context, src io.Reader) error {
	for {
		buf := make([]byte, uploadChunkSize)
		n, err := src.Read(buf)
		if n > 0 {
			select {
			case f.chunks <- buf[:n]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// finish ends the stream. A nil err means a complete upload.
func (f *FileUpload) finish(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.chunks)
}

type uploadReader struct {
	ctx     context.Context
	up      *FileUpload
	pending []byte
}

func (r *uploadReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		chunk, err := r.up.Next(r.ctx)
		if err != nil {
			return 0, err
		}
		r.pending = chunk
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// multipartState tracks the progress of a streaming multipart parse.
type multipartState struct {
	readyErr  error
	err       error
	ready     chan struct{}
	done      chan struct{}
	changed   chan struct{}
	readyOnce sync.Once
	mu        sync.Mutex
	finished  bool
}

func newMultipartState() *multipartState {
	return &multipartState{
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		changed: make(chan struct{}),
	}
}

func (m *multipartState) markReady(err error) {
	m.readyOnce.Do(func() {
		m.readyErr = err
		close(m.ready)
	})
}

// notify wakes everyone waiting for new fields or files.
func (m *multipartState) notify() {
	m.mu.Lock()
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()
}

func (m *multipartState) finish(err error) {
	m.mu.Lock()
	m.finished = true
	m.err = err
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()
	m.markReady(err)
}

func (m *multipartState) snapshot() (<-chan struct{}, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed, m.finished, m.err
}

// readMultipart runs in its own goroutine for the lifetime of the request.
func (r *Request) readMultipart(mr *multipart.Reader, src *delimiterWatch, mp *multipartState) {
	var err error
	defer close(mp.done)
	defer func() { mp.finish(err) }()

	var fieldBytes int64
	for {
		part, perr := mr.NextPart()
		// NextPart reports a body cut short as io.EOF too.
		if errors.Is(perr, io.EOF) && src.closed {
			return
		}
		if perr != nil {
			err = ErrBadRequest("Malformed multipart body", WithError(perr))
			return
		}

		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}

		if part.FileName() == "" {
			data, rerr := io.ReadAll(io.LimitReader(part, r.app.maxBodySize-fieldBytes+1))
			_ = part.Close()
			if rerr != nil {
				err = ErrBadRequest("Malformed multipart body", WithError(rerr))
				return
			}
			fieldBytes += int64(len(data))
			if fieldBytes > r.app.maxBodySize {
				err = ErrPayloadTooLarge("")
				return
			}
			if len(data) > 0 {
				r.mu.Lock()
				r.body.Add(name, string(data))
				r.mu.Unlock()
				mp.notify()
			}
			continue
		}

		up := newFileUpload(name, part.FileName(), part.Header.Get("Content-Type"))
		r.mu.Lock()
		r.files[name] = up
		r.mu.Unlock()
		mp.markReady(nil)
		mp.notify()

		ferr := up.fill(r, part)
		_ = part.Close()
		if ferr != nil && !errors.Is(ferr, context.Canceled) && !errors.Is(ferr, context.DeadlineExceeded) {
			ferr = ErrBadRequest("Malformed multipart body", WithError(ferr))
		}
		up.finish(ferr)
		if ferr != nil {
			err = ferr
			return
		}
	}
}

// delimiterWatch records whether the closing delimiter went through the
// reader. It is only read from the parser goroutine.
type delimiterWatch struct {
	src    io.Reader
	needle []byte
	tail   []byte
	closed bool
}

func newDelimiterWatch(src io.Reader, boundary string) *delimiterWatch {
	return &delimiterWatch{
		src:    src,
		needle: []byte("\n--" + boundary + "--"),
		tail:   []byte("\n"),
	}
}

func (d *delimiterWatch) Read(p []byte) (int, error) {
	n, err := d.src.Read(p)
	if n > 0 && !d.closed {
		buf := append(d.tail, p[:n]...)
		if bytes.Contains(buf, d.needle) {
			d.closed = true
		}
		keep := min(len(buf), len(d.needle)-1)
		d.tail = append(d.tail[:0:0], buf[len(buf)-keep:]...)
	}
	return n, err
}
