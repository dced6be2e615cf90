package generate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tsawler/docstamp/docx"
	"github.com/tsawler/docstamp/merge"
	"github.com/tsawler/docstamp/opc"
	"github.com/tsawler/docstamp/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// textRenderer produces a package whose body is one paragraph listing the
// values in key order.
func textRenderer(t *testing.T) RendererFunc {
	return func(ctx context.Context, _ []byte, values map[string]string) ([]byte, error) {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, k+"="+values[k])
		}

		pkg := opc.New()
		pkg.SetPart(opc.ContentTypesPath, []byte(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`))
		pkg.SetPart(docx.DocumentPath, []byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>`+
			strings.Join(parts, ";")+`</w:t></w:r></w:p></w:body></w:document>`))
		return pkg.Serialize()
	}
}

func mergedText(t *testing.T, data []byte) string {
	t.Helper()

	pkg, err := opc.Open(data)
	require.NoError(t, err)
	r, err := docx.NewReader(pkg)
	require.NoError(t, err)
	text, err := r.Text()
	require.NoError(t, err)
	return text
}

func TestPipeline_Run(t *testing.T) {
	store := memory.New()
	p := &Pipeline{
		Renderer:     textRenderer(t),
		Mapping:      Mapping{"{{student}}": "name"},
		Store:        store,
		NumberKey:    "practical_number",
		NumberPrefix: "Practical",
		Concurrency:  2,
	}

	records := []Record{{"name": "Ada"}, {"name": "Grace"}, {}}
	res, err := p.Run(context.Background(), []byte("template"), records)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Records)
	require.NotEmpty(t, res.ID)

	stored, err := store.Load(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Document, stored)

	want := strings.Join([]string{
		"practical_number=Practical-1;student=Ada",
		docx.PageBreak,
		"practical_number=Practical-2;student=Grace",
		docx.PageBreak,
		"practical_number=Practical-3;student=",
	}, "\n")
	assert.Equal(t, want, mergedText(t, res.Document))
}

func TestPipeline_WarnsAboutAbsentFields(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := &Pipeline{
		Renderer: textRenderer(t),
		Mapping:  Mapping{"{{student}}": "name", "{{aim}}": "objective"},
		Logger:   zap.New(core),
	}

	res, err := p.Run(context.Background(), []byte("template"), []Record{{"name": "Ada", "aim": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "aim=;student=Ada", mergedText(t, res.Document))

	warnings := logs.FilterMessage("mapped fields absent from all records").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, []interface{}{"objective"}, warnings[0].ContextMap()["fields"])
}

func TestPipeline_KeepsRecordOrder(t *testing.T) {
	slow := textRenderer(t)
	p := &Pipeline{
		Renderer: RendererFunc(func(ctx context.Context, tpl []byte, values map[string]string) ([]byte, error) {
			// earlier records finish last
			if values["n"] == "0" {
				time.Sleep(20 * time.Millisecond)
			}
			return slow(ctx, tpl, values)
		}),
		Concurrency: 8,
	}

	res, err := p.Run(context.Background(), nil, []Record{{"n": "0"}, {"n": "1"}, {"n": "2"}})
	require.NoError(t, err)
	assert.Empty(t, res.ID)

	text := mergedText(t, res.Document)
	assert.Less(t, strings.Index(text, "n=0"), strings.Index(text, "n=1"))
	assert.Less(t, strings.Index(text, "n=1"), strings.Index(text, "n=2"))
}

func TestPipeline_AggregatesRenderErrors(t *testing.T) {
	store := memory.New()
	ok := textRenderer(t)
	p := &Pipeline{
		Renderer: RendererFunc(func(ctx context.Context, tpl []byte, values map[string]string) ([]byte, error) {
			switch values["n"] {
			case "1":
				return nil, &RenderError{Explanation: "unclosed tag {{name"}
			case "3":
				return nil, errors.New("renderer crashed")
			}
			return ok(ctx, tpl, values)
		}),
		Store: store,
	}

	_, err := p.Run(context.Background(), nil, []Record{{"n": "0"}, {"n": "1"}, {"n": "2"}, {"n": "3"}})
	require.Error(t, err)
	assert.Equal(t, "error in record 2: unclosed tag {{name\nerror in record 4: renderer crashed", err.Error())

	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 1, re.Index)

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing stored after a failed run")
}

func TestPipeline_Timeout(t *testing.T) {
	p := &Pipeline{
		Renderer: RendererFunc(func(ctx context.Context, _ []byte, _ map[string]string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
		Timeout: 10 * time.Millisecond,
	}

	_, err := p.Run(context.Background(), nil, []Record{{}, {}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeline_ConcurrencyLimit(t *testing.T) {
	var running, peak int32
	ok := textRenderer(t)
	p := &Pipeline{
		Renderer: RendererFunc(func(ctx context.Context, tpl []byte, values map[string]string) ([]byte, error) {
			n := atomic.AddInt32(&running, 1)
			defer atomic.AddInt32(&running, -1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return ok(ctx, tpl, values)
		}),
		Concurrency: 2,
	}

	records := make([]Record, 6)
	for i := range records {
		records[i] = Record{"n": fmt.Sprint(i)}
	}
	_, err := p.Run(context.Background(), nil, records)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPipeline_EmptyAndMisconfigured(t *testing.T) {
	_, err := (&Pipeline{Renderer: textRenderer(t)}).Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, merge.ErrEmptyMergeSet)

	_, err = (&Pipeline{}).Run(context.Background(), nil, []Record{{}})
	assert.Error(t, err)
}

func TestPipeline_BadRenderOutput(t *testing.T) {
	p := &Pipeline{
		Renderer: RendererFunc(func(context.Context, []byte, map[string]string) ([]byte, error) {
			return []byte("not a package"), nil
		}),
	}

	_, err := p.Run(context.Background(), nil, []Record{{}})
	assert.ErrorIs(t, err, opc.ErrCorruptArchive)
	var recErr *merge.RecordError
	assert.True(t, errors.As(err, &recErr))
}
