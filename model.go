package forecaster

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aouyang1/go-timesnet/timesnet"
)

// Model is the serializable form of a fit forecaster: the options, the channel names, every
// network parameter and the fit residual statistics.
type Model struct {
	Options     *Options        `json:"options"`
	Names       []string        `json:"names"`
	Network     *timesnet.State `json:"network"`
	Lambda      float64         `json:"lambda"`
	ResidualStd []float64       `json:"residual_std"`
	Scores      []Scores        `json:"scores"`
}

func indentExpand(indent string, growth int) string {
	return strings.Repeat(indent, growth)
}

// TablePrint writes a human readable summary of the model.
func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecaster:\n", prefix, indentExpand(indent, 0)); err != nil {
		return err
	}

	if m.Network != nil && m.Network.Options != nil {
		mo := m.Network.Options
		if _, err := fmt.Fprintf(w, "%s%sNetwork: seq_len=%d pred_len=%d e_layers=%d top_k=%d d_model=%d d_ff=%d kernels=%d inception=%s\n",
			prefix, indentExpand(indent, 1),
			mo.SeqLen, mo.PredLen, mo.ELayers, mo.TopK, mo.DModel, mo.DFF, mo.NumKernels, mo.Inception,
		); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sParameters: %d\n", prefix, indentExpand(indent, 1), len(m.Network.Params)); err != nil {
			return err
		}
	}

	if m.Options != nil {
		if _, err := fmt.Fprintf(w, "%s%sRegularization: %.3g\n", prefix, indentExpand(indent, 1), m.Lambda); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sResidual Z-Score: %.2f\n", prefix, indentExpand(indent, 1), m.Options.ResidualZscore); err != nil {
			return err
		}
	}

	if len(m.Names) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s%sChannels:\n", prefix, indentExpand(indent, 0)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "%s%sName\tResidual Std\tMSE\tMAPE\tR2\t\n", prefix, indentExpand(indent, 1))
	for i, name := range m.Names {
		var std float64
		if i < len(m.ResidualStd) {
			std = m.ResidualStd[i]
		}
		var sc Scores
		if i < len(m.Scores) {
			sc = m.Scores[i]
		}
		fmt.Fprintf(tbl, "%s%s%s\t%.3f\t%.3f\t%.3f\t%.3f\t\n",
			prefix, indentExpand(indent, 1),
			name, std, sc.MSE, sc.MAPE, sc.R2)
	}
	return tbl.Flush()
}
