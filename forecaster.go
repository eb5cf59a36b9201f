// Package forecaster fits a TimesNet network to a multivariate time dataset and forecasts the
// horizon following the last observation. The network body is kept at its seeded initialization
// and the linear projection head is solved in closed form with ridge regression over sliding
// training windows.
package forecaster

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aouyang1/go-timesnet/linearmodel"
	"github.com/aouyang1/go-timesnet/timedataset"
	"github.com/aouyang1/go-timesnet/timesnet"
	"github.com/aouyang1/go-timesnet/tensor"
	"github.com/go-echarts/go-echarts/v2/components"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInsufficientResidual = errors.New("insufficient samples from residual after outlier removal")
	ErrEmptyTimeDataset     = errors.New("no timedataset or uninitialized")
	ErrNoOptionsInModel     = errors.New("no options set in model")
	ErrNoNetworkInModel     = errors.New("no network state set in model")
	ErrUninitialized        = errors.New("forecaster is not initialized")
	ErrNotFitted            = errors.New("forecaster has not been fit")
	ErrChannelMismatch      = errors.New("dataset channels do not match the fit channels")
	ErrNonFiniteForecast    = errors.New("network produced a non finite forecast")
)

const MinResidualSize = 2

// Forecaster fits a forecast model and can be used to generate forecasts
type Forecaster struct {
	opt *Options

	model       *timesnet.Model
	names       []string
	lambda      float64
	residualStd []float64
	scores      []Scores

	fitTrainingData *timedataset.TimeDataset
	fitResults      *Results
	residual        [][]float64
}

// New creates a new instance of a Forecaster using the provided options. If no options are provided
// a default is used.
func New(opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate forecaster options, %w", err)
	}
	return &Forecaster{opt: opt}, nil
}

// NewFromModel creates a new instance of Forecaster from a pre-existing model. This should be generated
// from a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	if model.Network == nil {
		return nil, ErrNoNetworkInModel
	}
	opt, err := model.Options.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate model options, %w", err)
	}
	network, err := timesnet.FromState(model.Network)
	if err != nil {
		return nil, fmt.Errorf("unable to load network state, %w", err)
	}
	network.SetTraining(false)
	if encIn := network.Options().EncIn; encIn != len(model.Names)+1 {
		return nil, fmt.Errorf("network has %d input channels for %d names, %w", encIn, len(model.Names), ErrChannelMismatch)
	}
	if len(model.ResidualStd) != len(model.Names) {
		return nil, fmt.Errorf("%d residual deviations for %d names, %w", len(model.ResidualStd), len(model.Names), ErrChannelMismatch)
	}

	return &Forecaster{
		opt:         opt,
		model:       network,
		names:       append([]string(nil), model.Names...),
		lambda:      model.Lambda,
		residualStd: append([]float64(nil), model.ResidualStd...),
		scores:      append([]Scores(nil), model.Scores...),
	}, nil
}

// Fit drops incomplete rows from the dataset, slides training windows across it and solves the
// projection head of a freshly initialized network against the normalized horizon of every window.
func (f *Forecaster) Fit(td *timedataset.TimeDataset) error {
	if f == nil || f.opt == nil {
		return ErrUninitialized
	}
	if td == nil || td.Len() == 0 {
		return ErrEmptyTimeDataset
	}
	clean := td.DropNan()

	// the trailing channel is a zero placeholder so every user channel is normalized and forecast
	modelOpt := *f.opt.ModelOptions
	modelOpt.EncIn = clean.Channels() + 1
	modelOpt.COut = modelOpt.EncIn
	network, err := timesnet.New(&modelOpt)
	if err != nil {
		return fmt.Errorf("unable to initialize network, %w", err)
	}
	network.SetTraining(false)

	windows, err := clean.Windows(modelOpt.SeqLen, modelOpt.PredLen, f.opt.Stride)
	if err != nil {
		return fmt.Errorf("unable to build training windows, %w", err)
	}

	d, err := f.buildDesign(network, windows)
	if err != nil {
		return err
	}

	reg, keep, err := f.fitHeadWithOutliers(d)
	if err != nil {
		return err
	}
	setProjection(network, reg)

	pred, err := reg.Predict(d.x)
	if err != nil {
		return fmt.Errorf("unable to predict training windows, %w", err)
	}

	f.model = network
	f.names = append([]string(nil), clean.Names...)
	f.lambda = reg.BestLambda()
	f.fitTrainingData = clean
	if err := f.summarizeFit(windows, d, pred, keep); err != nil {
		return err
	}

	slog.Debug("fit forecaster",
		"windows", len(windows),
		"rows", len(keep),
		"lambda", f.lambda,
		"holdout_r2", reg.BestScore(),
	)
	return nil
}

// design holds one regression row per window and horizon step.
type design struct {
	x       *mat.Dense // (rows, d_model) encoded features
	y       *mat.Dense // (rows, channels) normalized targets
	actual  *mat.Dense // (rows, channels) targets in data scale
	means   [][]float64
	stdevs  [][]float64
	predLen int
}

func (f *Forecaster) buildDesign(network *timesnet.Model, windows []timedataset.Window) (*design, error) {
	mo := network.Options()
	channels := mo.EncIn - 1
	rows := len(windows) * mo.PredLen
	d := &design{
		x:       mat.NewDense(rows, mo.DModel, nil),
		y:       mat.NewDense(rows, channels, nil),
		actual:  mat.NewDense(rows, channels, nil),
		means:   make([][]float64, len(windows)),
		stdevs:  make([][]float64, len(windows)),
		predLen: mo.PredLen,
	}

	steps := mo.TotalLen()
	for start := 0; start < len(windows); start += f.opt.BatchSize {
		end := min(start+f.opt.BatchSize, len(windows))
		inputs := make([][][]float64, 0, end-start)
		for _, w := range windows[start:end] {
			inputs = append(inputs, w.Input)
		}
		x := inputTensor(inputs, mo.SeqLen, mo.EncIn)

		features, norm, err := network.Encode(x)
		if err != nil {
			return nil, fmt.Errorf("unable to encode windows [%d, %d), %w", start, end, err)
		}
		data := features.Data()
		for b := start; b < end; b++ {
			means, stdevs := norm.Means[b-start], norm.Stdevs[b-start]
			d.means[b], d.stdevs[b] = means, stdevs
			target := windows[b].Target
			for h := 0; h < mo.PredLen; h++ {
				r := b*mo.PredLen + h
				off := ((b-start)*steps + mo.SeqLen + h) * mo.DModel
				copy(d.x.RawRowView(r), data[off:off+mo.DModel])
				for c := 0; c < channels; c++ {
					v := target[h][c]
					d.actual.Set(r, c, v)
					d.y.Set(r, c, (v-means[c])/stdevs[c])
				}
			}
		}
	}
	return d, nil
}

// inputTensor packs [batch][step][channel] rows into a (batch, seqLen, encIn) tensor leaving any
// channel beyond the rows at zero.
func inputTensor(inputs [][][]float64, seqLen, encIn int) *tensor.Tensor {
	x := tensor.New(len(inputs), seqLen, encIn)
	data := x.Data()
	for b, rows := range inputs {
		for t, row := range rows {
			copy(data[(b*seqLen+t)*encIn:], row)
		}
	}
	return x
}

func (f *Forecaster) fitHeadWithOutliers(d *design) (*linearmodel.RidgeAutoRegression, []int, error) {
	// iterate to remove outliers
	numPasses := 0
	if f.opt.OutlierOptions != nil {
		numPasses = f.opt.OutlierOptions.NumPasses
	}

	rows, _ := d.x.Dims()
	keep := make([]int, rows)
	for i := range keep {
		keep[i] = i
	}

	var reg *linearmodel.RidgeAutoRegression
	for i := 0; i <= numPasses; i++ {
		if len(keep) < MinResidualSize {
			return nil, nil, fmt.Errorf("%d rows remaining, %w", len(keep), ErrInsufficientResidual)
		}
		x, y := selectRows(d.x, keep), selectRows(d.y, keep)

		var err error
		reg, err = linearmodel.NewRidgeAutoRegression(f.opt.ridgeOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("unable to initialize projection head regression, %w", err)
		}
		if err := reg.Fit(x, y); err != nil {
			return nil, nil, fmt.Errorf("unable to fit projection head, %w", err)
		}

		// break out if no outlier options provided or nothing is left to refit
		if f.opt.OutlierOptions == nil || i == numPasses {
			break
		}

		pred, err := reg.Predict(x)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to predict projection head, %w", err)
		}
		outliers := f.outlierRows(pred, y)

		// no more outliers detected with outlier options so break early
		if len(outliers) == 0 {
			break
		}
		slog.Debug("removing outlier rows", "pass", i, "count", len(outliers))

		next := make([]int, 0, len(keep)-len(outliers))
		for j, row := range keep {
			if _, exists := outliers[j]; exists {
				continue
			}
			next = append(next, row)
		}
		keep = next
	}
	return reg, keep, nil
}

// outlierRows flags a row when the residual of any user channel falls outside the outlier fence.
func (f *Forecaster) outlierRows(pred, y *mat.Dense) map[int]struct{} {
	rows, cols := y.Dims()
	outlierSet := make(map[int]struct{})
	residual := make([]float64, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			residual[r] = y.At(r, c) - pred.At(r, c)
		}
		for _, idx := range f.opt.OutlierOptions.Detect(residual) {
			outlierSet[idx] = struct{}{}
		}
	}
	return outlierSet
}

func selectRows(m *mat.Dense, idx []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		out.SetRow(i, m.RawRowView(r))
	}
	return out
}

// setProjection loads the (features, channels) ridge solution into the (c_out, d_model) head. The
// placeholder row is zeroed since the forward pass replaces that channel with the input tail.
func setProjection(network *timesnet.Model, reg *linearmodel.RidgeAutoRegression) {
	weight := tensor.FromDense(reg.Coef().T())
	proj := network.Projection
	n := copy(proj.Weight.Data(), weight.Data())
	clear(proj.Weight.Data()[n:])

	bias := proj.Bias.Data()
	n = copy(bias, reg.Intercept())
	clear(bias[n:])
}

// summarizeFit restores the head predictions to data scale, scores every channel, measures the
// residual spread on the rows kept after outlier removal and lays the one step closest forecast of
// every covered time point over the training data.
func (f *Forecaster) summarizeFit(windows []timedataset.Window, d *design, pred *mat.Dense, keep []int) error {
	td := f.fitTrainingData
	rows, channels := d.actual.Dims()
	seqLen := f.model.Options().SeqLen

	fitted := make([][]float64, channels)
	actual := make([][]float64, channels)
	for c := 0; c < channels; c++ {
		fitted[c] = make([]float64, rows)
		actual[c] = make([]float64, rows)
		for r := 0; r < rows; r++ {
			w := r / d.predLen
			fitted[c][r] = pred.At(r, c)*d.stdevs[w][c] + d.means[w][c]
			actual[c][r] = d.actual.At(r, c)
		}
	}

	f.scores = make([]Scores, channels)
	f.residualStd = make([]float64, channels)
	residual := make([]float64, len(keep))
	for c := 0; c < channels; c++ {
		sc, err := NewScores(fitted[c], actual[c])
		if err != nil {
			return fmt.Errorf("unable to score channel %s, %w", f.names[c], err)
		}
		f.scores[c] = *sc

		for i, r := range keep {
			residual[i] = actual[c][r] - fitted[c][r]
		}
		f.residualStd[c] = stat.StdDev(residual, nil)
	}

	n := td.Len()
	res := &Results{
		T:        append(td.T[:0:0], td.T...),
		Names:    append([]string(nil), f.names...),
		Forecast: make([][]float64, channels),
		Upper:    make([][]float64, channels),
		Lower:    make([][]float64, channels),
	}
	f.residual = make([][]float64, channels)
	for c := 0; c < channels; c++ {
		res.Forecast[c] = nanSeries(n)
		res.Upper[c] = nanSeries(n)
		res.Lower[c] = nanSeries(n)
		f.residual[c] = nanSeries(n)
	}

	// later windows reach a point with a shorter lead so they overwrite earlier ones
	for b, w := range windows {
		for h := 0; h < d.predLen; h++ {
			idx := w.Start + seqLen + h
			r := b*d.predLen + h
			for c := 0; c < channels; c++ {
				band := f.opt.ResidualZscore * f.residualStd[c]
				res.Forecast[c][idx] = fitted[c][r]
				res.Upper[c][idx] = fitted[c][r] + band
				res.Lower[c][idx] = fitted[c][r] - band
				f.residual[c][idx] = actual[c][r] - fitted[c][r]
			}
		}
	}
	f.fitResults = res
	return nil
}

// Predict forecasts the pred_len steps following the last complete row of td. The dataset must have
// the channels the forecaster was fit on and at least seq_len complete rows.
func (f *Forecaster) Predict(td *timedataset.TimeDataset) (*Results, error) {
	if f == nil || f.model == nil {
		return nil, ErrNotFitted
	}
	if td == nil || td.Len() == 0 {
		return nil, ErrEmptyTimeDataset
	}
	clean := td.DropNan()
	if clean.Channels() != len(f.names) {
		return nil, fmt.Errorf("got %d channels, expected %d, %w", clean.Channels(), len(f.names), ErrChannelMismatch)
	}

	mo := f.model.Options()
	tail, err := clean.Tail(mo.SeqLen)
	if err != nil {
		return nil, fmt.Errorf("unable to get lookback window, %w", err)
	}
	horizon, err := timedataset.TimeSlice(clean.T).Horizon(mo.PredLen)
	if err != nil {
		return nil, fmt.Errorf("unable to generate horizon timestamps, %w", err)
	}

	out, err := f.model.Forward(inputTensor([][][]float64{tail}, mo.SeqLen, mo.EncIn))
	if err != nil {
		return nil, fmt.Errorf("unable to run network, %w", err)
	}
	if !out.IsFinite() {
		return nil, ErrNonFiniteForecast
	}

	channels := len(f.names)
	r := &Results{
		T:        horizon,
		Names:    append([]string(nil), f.names...),
		Forecast: make([][]float64, channels),
		Upper:    make([][]float64, channels),
		Lower:    make([][]float64, channels),
	}
	for c := 0; c < channels; c++ {
		band := f.opt.ResidualZscore * f.residualStd[c]
		forecast := make([]float64, mo.PredLen)
		upper := make([]float64, mo.PredLen)
		lower := make([]float64, mo.PredLen)
		for t := 0; t < mo.PredLen; t++ {
			forecast[t] = out.At(0, t, c)
			upper[t] = forecast[t] + band
			lower[t] = forecast[t] - band
		}
		r.Forecast[c] = forecast
		r.Upper[c] = upper
		r.Lower[c] = lower
	}
	return r, nil
}

// Model generates a serializable representation of the fit options, network parameters and residual
// statistics. This can be used to initialize a new Forecaster for immediate predictions skipping the
// training step.
func (f *Forecaster) Model() (Model, error) {
	if f == nil || f.model == nil {
		return Model{}, ErrNotFitted
	}
	return Model{
		Options:     f.opt,
		Names:       append([]string(nil), f.names...),
		Network:     f.model.State(),
		Lambda:      f.lambda,
		ResidualStd: append([]float64(nil), f.residualStd...),
		Scores:      append([]Scores(nil), f.scores...),
	}, nil
}

// Network returns the underlying TimesNet model.
func (f *Forecaster) Network() *timesnet.Model {
	return f.model
}

// Names returns the channel names in forecast order.
func (f *Forecaster) Names() []string {
	return f.names
}

// FitScores returns the per channel scores of the head predictions over every training window.
func (f *Forecaster) FitScores() []Scores {
	return f.scores
}

// ResidualStd returns the per channel standard deviation of the fit residual.
func (f *Forecaster) ResidualStd() []float64 {
	return f.residualStd
}

// Residuals returns the difference between the fit and the training data per channel. Points not
// covered by any training horizon are NaN.
func (f *Forecaster) Residuals() [][]float64 {
	return f.residual
}

// TrainingData returns the complete rows used to fit the current forecaster model
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	return f.fitTrainingData
}

// FitResults returns the results of the fit which includes the forecast, upper, and lower values
func (f *Forecaster) FitResults() *Results {
	return f.fitResults
}

// PlotFit uses the Apache Echarts library to write an html page showing the fit and the forecast
// horizon of every channel along with the fit residual.
func (f *Forecaster) PlotFit(w io.Writer) error {
	if f == nil || f.fitResults == nil || f.fitTrainingData == nil {
		return ErrNotFitted
	}
	td := f.fitTrainingData
	horizonRes, err := f.Predict(td)
	if err != nil {
		return fmt.Errorf("unable to predict with horizon, %w", err)
	}

	t := append(append(td.T[:0:0], td.T...), horizonRes.T...)
	zpad := nanSeries(len(horizonRes.T))

	page := components.NewPage()
	residuals := make([][]float64, len(f.names))
	for c, name := range f.names {
		page.AddCharts(
			LineForecaster(
				"Forecast Fit "+name,
				t,
				append(append([]float64(nil), td.Y[c]...), zpad...),
				append(append([]float64(nil), f.fitResults.Forecast[c]...), horizonRes.Forecast[c]...),
				append(append([]float64(nil), f.fitResults.Upper[c]...), horizonRes.Upper[c]...),
				append(append([]float64(nil), f.fitResults.Lower[c]...), horizonRes.Lower[c]...),
			),
		)
		residuals[c] = append(append([]float64(nil), f.residual[c]...), zpad...)
	}
	page.AddCharts(LineTSeries("Forecast Residual", f.names, t, residuals))
	return page.Render(w)
}

// PlotFitFile writes PlotFit to the file at path.
func (f *Forecaster) PlotFitFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create plot file, %w", err)
	}
	defer file.Close()
	return f.PlotFit(file)
}
