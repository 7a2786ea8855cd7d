package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// LocalDefaultDimension matches the MiniLM sentence-transformer family.
const LocalDefaultDimension = 384

// LocalConfig points at an exported sentence-transformer ONNX model.
type LocalConfig struct {
	ModelPath     string
	VocabPath     string
	SharedLibPath string
}

// LocalProvider runs a sentence-transformer ONNX model in process. The model and
// runtime are loaded on first use; a load failure is remembered and returned on
// every later call so the chain moves on.
type LocalProvider struct {
	mu  sync.Mutex
	cfg LocalConfig

	inited  bool
	initErr error
	session *ort.DynamicAdvancedSession
	inputs  []string
	tok     *wordPiece
	dim     int
}

func NewLocalProvider(cfg LocalConfig) *LocalProvider {
	return &LocalProvider{cfg: cfg, dim: LocalDefaultDimension}
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dim
}

func (p *LocalProvider) initOnce() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inited {
		return p.initErr
	}
	p.inited = true
	p.initErr = p.load()
	return p.initErr
}

func (p *LocalProvider) load() error {
	if p.cfg.ModelPath == "" || p.cfg.VocabPath == "" {
		return fmt.Errorf("%w: local model or vocab path not configured", ErrProviderFailure)
	}
	tok, err := loadWordPiece(p.cfg.VocabPath)
	if err != nil {
		return err
	}

	if p.cfg.SharedLibPath != "" {
		ort.SetSharedLibraryPath(p.cfg.SharedLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(p.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(outputs) == 0 {
		return fmt.Errorf("onnx model has no outputs")
	}

	known := map[string]bool{"input_ids": true, "attention_mask": true, "token_type_ids": true}
	var inputNames []string
	for _, in := range inputs {
		if known[in.Name] {
			inputNames = append(inputNames, in.Name)
		}
	}
	if len(inputNames) == 0 {
		return fmt.Errorf("onnx model declares no token inputs")
	}

	out := outputs[0]
	if dims := out.Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		p.dim = int(dims[len(dims)-1])
	}

	session, err := ort.NewDynamicAdvancedSession(p.cfg.ModelPath, inputNames, []string{out.Name}, nil)
	if err != nil {
		return fmt.Errorf("onnx new session: %w", err)
	}
	p.session = session
	p.inputs = inputNames
	p.tok = tok
	return nil
}

func (p *LocalProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (p *LocalProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.initOnce(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := p.embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *LocalProvider) embed(text string) ([]float32, error) {
	ids := p.tok.encode(text)
	seqLen := int64(len(ids))
	shape := ort.NewShape(1, seqLen)

	mask := make([]int64, seqLen)
	for i := range mask {
		mask[i] = 1
	}
	feeds := map[string][]int64{
		"input_ids":      ids,
		"attention_mask": mask,
		"token_type_ids": make([]int64, seqLen),
	}

	values := make([]ort.Value, 0, len(p.inputs))
	defer func() {
		for _, v := range values {
			_ = v.Destroy()
		}
	}()
	for _, name := range p.inputs {
		t, err := ort.NewTensor(shape, feeds[name])
		if err != nil {
			return nil, fmt.Errorf("onnx new input tensor %s: %w", name, err)
		}
		values = append(values, t)
	}

	p.mu.Lock()
	dim := p.dim
	p.mu.Unlock()
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(dim)))
	if err != nil {
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}
	defer output.Destroy()

	if err := p.session.Run(values, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	return meanPool(output.GetData(), mask, dim), nil
}

// meanPool averages token embeddings under the attention mask and L2-normalizes the result.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	vec := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for j, x := range row {
			vec[j] += x
		}
		count++
	}
	if count > 0 {
		for j := range vec {
			vec[j] /= count
		}
	}
	return l2Normalize(vec)
}
