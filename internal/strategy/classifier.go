package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"swarm/internal/logger"
	"swarm/internal/market"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	featureCount = 6
	classCount   = 3

	classBuy  = 0
	classSell = 1
	classHold = 2

	trainSeed    = 42
	trainSamples = 1000
	trainEpochs  = 400
	learningRate = 0.5

	modelVersion = 1
)

var classActions = [classCount]Action{classBuy: ActionBuy, classSell: ActionSell, classHold: ActionHold}

// Model 是一个标准化 + softmax 线性分类器，推理只读，可在 agent 间共享。
type Model struct {
	Version int                               `json:"version"`
	Mean    [featureCount]float64             `json:"mean"`
	Std     [featureCount]float64             `json:"std"`
	Weights [classCount][featureCount]float64 `json:"weights"`
	Bias    [classCount]float64               `json:"bias"`
}

// Features 从 Context 提取 6 维特征，与训练样本的归一化方式一致。
func Features(c market.Context) [featureCount]float64 {
	cashRatio := 0.0
	if c.MidPrice > 0 {
		cashRatio = c.Cash / (c.MidPrice * 10)
	}
	news := 0.0
	if c.HasRecentNews {
		news = 1
	}
	depth := float64(c.BidDepth+c.AskDepth) / 2
	return [featureCount]float64{
		c.SpreadPct,
		c.PriceChange,
		float64(c.PositionQty) / 10,
		cashRatio,
		news,
		depth / 10,
	}
}

// Predict 返回 (类别, 置信度)，置信度为最大类别概率。
func (m *Model) Predict(x [featureCount]float64) (Action, float64) {
	z := m.standardize(x)
	probs := m.probabilities(mat.NewVecDense(featureCount, z[:]))
	best := floats.MaxIdx(probs)
	return classActions[best], probs[best]
}

func (m *Model) standardize(x [featureCount]float64) [featureCount]float64 {
	var z [featureCount]float64
	for j := range x {
		z[j] = (x[j] - m.Mean[j]) / m.Std[j]
	}
	return z
}

func (m *Model) weightMatrix() *mat.Dense {
	w := mat.NewDense(classCount, featureCount, nil)
	for k := range m.Weights {
		w.SetRow(k, m.Weights[k][:])
	}
	return w
}

// probabilities 计算 softmax(W·z + b)。
func (m *Model) probabilities(z mat.Vector) []float64 {
	logits := mat.NewVecDense(classCount, nil)
	logits.MulVec(m.weightMatrix(), z)
	logits.AddVec(logits, mat.NewVecDense(classCount, append([]float64(nil), m.Bias[:]...)))
	return softmax(logits.RawVector().Data)
}

func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	norm := floats.LogSumExp(logits)
	for k, v := range logits {
		out[k] = math.Exp(v - norm)
	}
	return out
}

type sample struct {
	x     [featureCount]float64
	label int
}

// syntheticSamples 生成固定种子的训练集，标签规则描述几种常见交易形态。
func syntheticSamples(seed uint64, n int) []sample {
	r := rand.New(rand.NewPCG(seed, seed))
	positions := [...]float64{-10, -5, 0, 5, 10}
	out := make([]sample, n)
	for i := range out {
		spread := r.Float64() * 0.05
		change := -0.1 + r.Float64()*0.2
		pos := positions[r.IntN(len(positions))]
		cashRatio := 0.1 + r.Float64()*1.9
		news := float64(r.IntN(2))
		depth := 1 + r.Float64()*9

		label := classHold
		switch {
		case spread > 0.01 && change > 0.02 && cashRatio > 0.5:
			label = classBuy
		case spread > 0.01 && change < -0.02 && pos > 0:
			label = classSell
		case news == 1 && cashRatio > 0.3:
			label = classBuy
		}
		out[i] = sample{
			x:     [featureCount]float64{spread, change, pos / 10, cashRatio, news, depth / 10},
			label: label,
		}
	}
	return out
}

// train 用全量梯度下降拟合 softmax 回归，结果完全由输入决定。
func train(samples []sample) *Model {
	m := &Model{Version: modelVersion}
	n := len(samples)

	x := mat.NewDense(n, featureCount, nil)
	for i, s := range samples {
		x.SetRow(i, s.x[:])
	}
	col := make([]float64, n)
	for j := 0; j < featureCount; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.Mean[j], m.Std[j] = mean, std
	}
	z := mat.NewDense(n, featureCount, nil)
	z.Apply(func(_, j int, v float64) float64 { return (v - m.Mean[j]) / m.Std[j] }, x)

	// onehot[i][k] = 1 当且仅当样本 i 的标签为 k。
	onehot := mat.NewDense(n, classCount, nil)
	for i, s := range samples {
		onehot.Set(i, s.label, 1)
	}

	w := mat.NewDense(classCount, featureCount, nil)
	bias := make([]float64, classCount)
	logits := mat.NewDense(n, classCount, nil)
	diff := mat.NewDense(n, classCount, nil)
	gradW := mat.NewDense(classCount, featureCount, nil)
	step := learningRate / float64(n)
	for epoch := 0; epoch < trainEpochs; epoch++ {
		logits.Mul(z, w.T())
		for i := 0; i < n; i++ {
			row := logits.RawRowView(i)
			floats.Add(row, bias)
			copy(row, softmax(row))
		}
		diff.Sub(logits, onehot)
		gradW.Mul(diff.T(), z)
		w.Apply(func(k, j int, v float64) float64 { return v - step*gradW.At(k, j) }, w)
		for k := 0; k < classCount; k++ {
			bias[k] -= step * floats.Sum(mat.Col(nil, k, diff))
		}
	}

	for k := 0; k < classCount; k++ {
		mat.Row(m.Weights[k][:], k, w)
		m.Bias[k] = bias[k]
	}
	return m
}

func (m *Model) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建模型目录失败: %w", err)
		}
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("解析模型 %s 失败: %w", path, err)
	}
	if m.Version != modelVersion {
		return nil, fmt.Errorf("模型版本不匹配: got %d want %d", m.Version, modelVersion)
	}
	for j, s := range m.Std {
		if s <= 0 || math.IsNaN(s) {
			return nil, fmt.Errorf("模型特征 %d 的标准差无效", j)
		}
	}
	return &m, nil
}

var (
	defaultModelOnce sync.Once
	defaultModel     *Model
)

// DefaultModel 进程内只训练一次。
func DefaultModel() *Model {
	defaultModelOnce.Do(func() {
		defaultModel = train(syntheticSamples(trainSeed, trainSamples))
	})
	return defaultModel
}

// LoadOrTrain 优先读取 path 上的模型；缺失或损坏时使用内置训练结果并尝试写回。
func LoadOrTrain(path string) *Model {
	if path == "" {
		return DefaultModel()
	}
	m, err := LoadModel(path)
	if err == nil {
		logger.Infof("已加载分类模型: %s", path)
		return m
	}
	if !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("加载分类模型失败，重新训练: %v", err)
	}
	m = DefaultModel()
	if err := m.Save(path); err != nil {
		logger.Warnf("保存分类模型失败: %v", err)
	}
	return m
}
