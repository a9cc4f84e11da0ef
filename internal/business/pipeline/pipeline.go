package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"txcluster/internal/app/pkg/logger"
	"txcluster/internal/business/dataset"
	"txcluster/internal/business/features"
	"txcluster/internal/business/plot"
	"txcluster/internal/business/registry"
	"txcluster/internal/business/scaling"
	"txcluster/internal/business/spreading"
)

// Options 模型参数与输出目录
type Options struct {
	Params    spreading.Params
	BatchSize int
	StaticDir string
}

// Result 一次运行的结果
type Result struct {
	RunID              string
	Fingerprint        string
	ModelReused        bool
	Columns            []string
	TrainRows          int
	TestRows           int
	MissingTestClients int
	ClientIDs          []int64
	Predictions        []int
	LabelCounts        map[int]int
	PlotPath           string
	SubmissionPath     string
	PNG                []byte
}

// Pipeline 加载 -> 特征 -> 对齐/标准化 -> 训练或复用模型 -> 预测 -> 出图
type Pipeline struct {
	store   *dataset.Store
	trainer *registry.Trainer
	opts    Options
	log     logger.Logger
}

// New 创建 Pipeline
func New(store *dataset.Store, trainer *registry.Trainer, opts Options, log logger.Logger) (*Pipeline, error) {
	if err := os.MkdirAll(opts.StaticDir, 0o755); err != nil {
		return nil, fmt.Errorf("create static dir failed: %w", err)
	}
	return &Pipeline{
		store:   store,
		trainer: trainer,
		opts:    opts,
		log:     log,
	}, nil
}

// PlotPath 运行对应的图片路径
func (p *Pipeline) PlotPath(runID string) string {
	return filepath.Join(p.opts.StaticDir, "plot_"+runID+".png")
}

// SubmissionPath 运行对应的预测结果 CSV 路径
func (p *Pipeline) SubmissionPath(runID string) string {
	return filepath.Join(p.opts.StaticDir, "submission_"+runID+".csv")
}

// Run 同步执行整条流水线
func (p *Pipeline) Run(ctx context.Context, runID string) (*Result, error) {
	ctx = logger.WithRunID(ctx, runID)
	start := time.Now()

	// 1. 加载数据集
	bundle, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	trainTx, err := dataset.Transactions(bundle.TransactionsTrain)
	if err != nil {
		return nil, err
	}
	testTx, err := dataset.Transactions(bundle.TransactionsTest)
	if err != nil {
		return nil, err
	}
	labels, err := dataset.Labels(bundle.TrainTarget)
	if err != nil {
		return nil, err
	}
	testIDs, err := dataset.ClientIDs(bundle.TestIDs)
	if err != nil {
		return nil, err
	}

	// 2. 特征
	trainFeat := features.Build(trainTx)
	testFeat := features.Build(testTx)

	missing := countMissing(testIDs, testFeat.ClientIDs)
	if missing > 0 {
		p.log.WarnContext(ctx, "Test clients without transactions", "count", missing)
	}

	// 3. 对齐特征列
	aligned, err := scaling.Align(trainFeat, testFeat)
	if err != nil {
		return nil, err
	}
	fingerprint := registry.Fingerprint(aligned.Columns, p.opts.Params, p.opts.BatchSize)

	// 4. 训练或复用模型
	resolved, err := p.trainer.Resolve(ctx, fingerprint, func(ctx context.Context) (*registry.Artifact, error) {
		return p.train(ctx, aligned, labels)
	})
	if err != nil {
		return nil, err
	}
	artifact := resolved.Artifact

	// 5. 预测，始终使用模型自带的 scaler
	testScaled, err := artifact.Scaler.Transform(aligned.Test)
	if err != nil {
		return nil, err
	}
	predictions, err := artifact.Ensemble.Predict(testScaled)
	if err != nil {
		return nil, err
	}

	// 6. 出图与结果文件
	png, err := plot.RenderLabels(predictions)
	if err != nil {
		return nil, err
	}
	plotPath := p.PlotPath(runID)
	if err := os.WriteFile(plotPath, png, 0o644); err != nil {
		return nil, fmt.Errorf("write plot failed: %w", err)
	}
	submissionPath := p.SubmissionPath(runID)
	if err := writeSubmission(submissionPath, aligned.TestIDs, predictions); err != nil {
		return nil, err
	}

	trainRows, _ := aligned.Train.Dims()
	result := &Result{
		RunID:              runID,
		Fingerprint:        fingerprint,
		ModelReused:        resolved.Reused,
		Columns:            aligned.Columns,
		TrainRows:          trainRows,
		TestRows:           len(predictions),
		MissingTestClients: missing,
		ClientIDs:          aligned.TestIDs,
		Predictions:        predictions,
		LabelCounts:        countLabels(predictions),
		PlotPath:           plotPath,
		SubmissionPath:     submissionPath,
		PNG:                png,
	}

	p.log.InfoContext(ctx, "Pipeline finished",
		"fingerprint", fingerprint,
		"model_reused", resolved.Reused,
		"features", len(aligned.Columns),
		"train_rows", trainRows,
		"test_rows", len(predictions),
		"duration", time.Since(start).String(),
	)
	return result, nil
}

// train 只用训练集拟合 scaler，标签按 client_id 关联，没有标签的客户记为未标注
func (p *Pipeline) train(ctx context.Context, aligned *scaling.Aligned, labels map[int64]int) (*registry.Artifact, error) {
	scaler := scaling.FitStandardScaler(aligned.Train)
	trainScaled, err := scaler.Transform(aligned.Train)
	if err != nil {
		return nil, err
	}

	y := make([]int, len(aligned.TrainIDs))
	labeled := 0
	for i, id := range aligned.TrainIDs {
		if bin, ok := labels[id]; ok {
			y[i] = bin
			labeled++
		} else {
			y[i] = spreading.Unlabeled
		}
	}
	p.log.InfoContext(ctx, "Training label spreading",
		"rows", len(y),
		"labeled", labeled,
		"batch_size", p.opts.BatchSize,
	)

	ensemble, err := spreading.FitBatches(ctx, trainScaled, y, p.opts.BatchSize, p.opts.Params,
		func(i int, r spreading.Range, m *spreading.Model) {
			p.log.DebugContext(ctx, "Batch fitted", "batch", i, "start", r.Start, "end", r.End, "n_iter", m.NIter)
		})
	if err != nil {
		return nil, err
	}
	if ensemble.Skipped > 0 {
		p.log.WarnContext(ctx, "Batches without labels skipped", "count", ensemble.Skipped)
	}

	return &registry.Artifact{
		Columns:   aligned.Columns,
		Params:    p.opts.Params,
		BatchSize: p.opts.BatchSize,
		TrainRows: len(y),
		Scaler:    scaler,
		Ensemble:  ensemble,
	}, nil
}

func countMissing(want []int64, have []int64) int {
	present := make(map[int64]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	missing := 0
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing++
		}
	}
	return missing
}

func countLabels(predictions []int) map[int]int {
	counts := make(map[int]int)
	for _, l := range predictions {
		counts[l]++
	}
	return counts
}

func writeSubmission(path string, ids []int64, clusters []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create submission failed: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"client_id", "cluster"}); err != nil {
		return err
	}
	for i, id := range ids {
		if err := w.Write([]string{strconv.FormatInt(id, 10), strconv.Itoa(clusters[i])}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write submission failed: %w", err)
	}
	return f.Close()
}
