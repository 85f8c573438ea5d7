// Package gcode writes milling and drilling programs for composed board
// layers and reads programs back for statistics and safety checks.
package gcode

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/piwi3910/pcbmill/internal/board"
	"github.com/piwi3910/pcbmill/internal/model"
	"github.com/piwi3910/pcbmill/internal/tsp"
)

// mmPerInch converts board units to metric output.
const mmPerInch = 25.4

// drillQuantization is the ordering tie tolerance for drill hits.
const drillQuantization = 0.0001

// Options controls coordinate placement of a program.
type Options struct {
	// Origin is subtracted from every board coordinate, e.g. the lower-left
	// board corner for zero-start output.
	Origin model.Point2D
	// MirrorAxis is the x coordinate back side drill hits are reflected
	// about. Milled layers arrive already mirrored.
	MirrorAxis float64
	// TSP2Opt refines the drill order with 2-opt.
	TSP2Opt bool
}

// Generator produces G-code in the dialect of one profile.
type Generator struct {
	profile model.GCodeProfile
	opts    Options
}

// New returns a generator for profile.
func New(profile model.GCodeProfile, opts Options) *Generator {
	return &Generator{profile: profile, opts: opts}
}

// Profile returns the output profile.
func (g *Generator) Profile() model.GCodeProfile { return g.profile }

// GenerateLayer produces the milling program of a composed layer.
func (g *Generator) GenerateLayer(l *board.Layer, jobID string) (string, error) {
	paths, err := l.Toolpaths()
	if err != nil {
		return "", fmt.Errorf("toolpaths for layer %q: %w", l.Name, err)
	}

	var b strings.Builder
	m := l.Tool.Base()

	g.writeHeader(&b, jobID, fmt.Sprintf("layer %s, %s side", l.Name, l.Side))
	b.WriteString(g.comment(fmt.Sprintf("Tool: %s, Feed: %s, Plunge: %s",
		g.toolDescription(l.Tool), g.format(g.feed(m.Feed)), g.format(g.feed(m.VertFeed)))))
	b.WriteString(g.comment(fmt.Sprintf("Toolpaths: %d", len(paths))))
	b.WriteString("\n")

	g.writeStart(&b, model.PathTolerance(l.Tool, 0))
	g.writeToolChange(&b, m, g.toolDescription(l.Tool))

	depths := []float64{m.ZWork}
	var bridges *model.Cutter
	if c, ok := l.Tool.(*model.Cutter); ok {
		depths = stepDepths(c)
		if c.BridgesNum > 0 && c.BridgesWidth > 0 {
			bridges = c
		}
	}

	for i, path := range paths {
		if len(path) < 2 {
			continue
		}
		b.WriteString(g.comment(fmt.Sprintf("--- Path %d/%d ---", i+1, len(paths))))
		if m.PreMilling != "" {
			b.WriteString(m.PreMilling + "\n")
		}

		start := path[0]
		b.WriteString(fmt.Sprintf("%s X%s Y%s\n", g.profile.RapidMove,
			g.coord(start.X-g.opts.Origin.X), g.coord(start.Y-g.opts.Origin.Y)))

		for pass, depth := range depths {
			if len(depths) > 1 {
				b.WriteString(g.comment(fmt.Sprintf("Pass %d/%d, depth=%s", pass+1, len(depths), g.coord(depth))))
			}
			b.WriteString(fmt.Sprintf("%s Z%s F%s\n", g.profile.FeedMove,
				g.coord(depth), g.format(g.feed(m.VertFeed))))

			var spans []span
			if bridges != nil && pass == len(depths)-1 {
				spans = bridgeSpans(path, bridges.BridgesNum, bridges.BridgesWidth)
			}
			g.writeCut(&b, path, depth, m.Feed, spans, bridges)
		}

		b.WriteString(fmt.Sprintf("%s Z%s\n", g.profile.RapidMove, g.coord(m.ZSafe)))
		if m.PostMilling != "" {
			b.WriteString(m.PostMilling + "\n")
		}
		b.WriteString("\n")
	}

	g.writeFooter(&b, m)
	return b.String(), nil
}

// GenerateDrill produces a drilling program. Holes are grouped by diameter,
// smallest first, with a tool change between groups, and each group is
// ordered for short travel from the origin. A one-drill driller keeps the
// first bit for every group; a canned-cycle driller drills each group with
// G81.
func (g *Generator) GenerateDrill(holes []model.Hole, d *model.Driller, jobID string) string {
	var b strings.Builder
	m := d.Base()

	groups := make(map[float64][]model.Hole)
	for _, h := range g.place(holes, m.Backside) {
		groups[h.Diameter] = append(groups[h.Diameter], h)
	}
	sizes := make([]float64, 0, len(groups))
	for dia := range groups {
		sizes = append(sizes, dia)
	}
	sort.Float64s(sizes)

	g.writeHeader(&b, jobID, "drill")
	b.WriteString(g.comment(fmt.Sprintf("Holes: %d, bit sizes: %d", len(holes), len(sizes))))
	b.WriteString("\n")
	g.writeStart(&b, 0)

	for i, dia := range sizes {
		group := groups[dia]
		tsp.Order(group, model.Point2D{}, drillQuantization, tsp.HoleCenter, g.opts.TSP2Opt)

		bit := fmt.Sprintf("drill %s%s", g.coord(dia), g.unitName())
		if d.OneDrill && i > 0 {
			b.WriteString(g.comment(fmt.Sprintf("Drill change skipped, %d holes of %s", len(group), bit)))
		} else {
			g.writeToolChange(&b, m, bit)
		}

		if d.CannedCycle {
			g.writeCannedCycle(&b, m, group)
		} else {
			for _, h := range group {
				b.WriteString(fmt.Sprintf("%s X%s Y%s\n", g.profile.RapidMove,
					g.coord(h.X-g.opts.Origin.X), g.coord(h.Y-g.opts.Origin.Y)))
				b.WriteString(fmt.Sprintf("%s Z%s F%s\n", g.profile.FeedMove,
					g.coord(m.ZWork), g.format(g.feed(m.Feed))))
				b.WriteString(fmt.Sprintf("%s Z%s\n", g.profile.RapidMove, g.coord(m.ZSafe)))
			}
		}
		b.WriteString("\n")
	}

	g.writeFooter(&b, m)
	return b.String()
}

// writeCannedCycle drills holes with G81, retracting to the safe height.
func (g *Generator) writeCannedCycle(b *strings.Builder, m *model.Mill, holes []model.Hole) {
	for i, h := range holes {
		xy := fmt.Sprintf("X%s Y%s", g.coord(h.X-g.opts.Origin.X), g.coord(h.Y-g.opts.Origin.Y))
		if i == 0 {
			b.WriteString(fmt.Sprintf("G81 R%s Z%s F%s %s\n",
				g.coord(m.ZSafe), g.coord(m.ZWork), g.format(g.feed(m.Feed)), xy))
			continue
		}
		b.WriteString(xy + "\n")
	}
	b.WriteString("G80\n")
}

// GenerateMilledHoles produces a program cutting holes with the outline
// cutter: a full circle at every step depth, offset inward by the cutter
// radius. Holes no wider than the cutter are only plunged; their count is
// returned so the caller can warn about them.
func (g *Generator) GenerateMilledHoles(holes []model.Hole, d *model.Driller, c *model.Cutter, jobID string) (string, int) {
	var b strings.Builder
	m := c.Base()
	placed := g.place(holes, d.Backside)
	tsp.Order(placed, model.Point2D{}, drillQuantization, tsp.HoleCenter, g.opts.TSP2Opt)

	g.writeHeader(&b, jobID, "milled holes")
	b.WriteString(g.comment(fmt.Sprintf("Holes: %d, Tool: %s", len(holes), g.toolDescription(c))))
	b.WriteString("\n")
	g.writeStart(&b, 0)
	g.writeToolChange(&b, m, g.toolDescription(c))

	depths := stepDepths(c)
	plunged := 0
	for _, h := range placed {
		x, y := h.X-g.opts.Origin.X, h.Y-g.opts.Origin.Y
		if c.ToolDiameter*1.001 >= h.Diameter {
			plunged++
			b.WriteString(fmt.Sprintf("%s X%s Y%s\n", g.profile.RapidMove, g.coord(x), g.coord(y)))
			b.WriteString(fmt.Sprintf("%s Z%s F%s\n", g.profile.FeedMove,
				g.coord(m.ZWork), g.format(g.feed(m.VertFeed))))
			b.WriteString(fmt.Sprintf("%s Z%s\n\n", g.profile.RapidMove, g.coord(m.ZSafe)))
			continue
		}

		r := (h.Diameter - c.ToolDiameter) / 2
		b.WriteString(fmt.Sprintf("%s X%s Y%s\n", g.profile.RapidMove, g.coord(x+r), g.coord(y)))
		for _, depth := range depths {
			b.WriteString(fmt.Sprintf("%s Z%s F%s\n", g.profile.FeedMove,
				g.coord(depth), g.format(g.feed(m.VertFeed))))
			b.WriteString(fmt.Sprintf("G2 X%s Y%s I%s J%s F%s\n",
				g.coord(x+r), g.coord(y), g.coord(-r), g.coord(0), g.format(g.feed(m.Feed))))
		}
		b.WriteString(fmt.Sprintf("%s Z%s\n\n", g.profile.RapidMove, g.coord(m.ZSafe)))
	}

	g.writeFooter(&b, m)
	return b.String(), plunged
}

// place copies holes, mirroring them about the mirror axis for back side
// work.
func (g *Generator) place(holes []model.Hole, backside bool) []model.Hole {
	out := make([]model.Hole, len(holes))
	for i, h := range holes {
		if backside {
			h.X = 2*g.opts.MirrorAxis - h.X
		}
		out[i] = h
	}
	return out
}

func (g *Generator) writeHeader(b *strings.Builder, jobID, what string) {
	b.WriteString(g.comment(fmt.Sprintf("pcbmill G-code, %s", what)))
	b.WriteString(g.comment(fmt.Sprintf("Job: %s", jobID)))
	b.WriteString(g.comment(fmt.Sprintf("Profile: %s (%s)", g.profile.Name, g.unitName())))
}

// writeStart emits the profile start codes and optional path blending.
func (g *Generator) writeStart(b *strings.Builder, tolerance float64) {
	for _, code := range g.profile.StartCode {
		b.WriteString(code + "\n")
	}
	if g.profile.PathControl != "" && tolerance > 0 {
		b.WriteString(fmt.Sprintf(g.profile.PathControl+"\n", g.coord(tolerance)))
	}
	b.WriteString("\n")
}

// writeToolChange retracts to the change height, pauses for the operator and
// restarts the spindle.
func (g *Generator) writeToolChange(b *strings.Builder, m *model.Mill, tool string) {
	p := g.profile
	b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, g.coord(m.ZChange)))
	if p.SpindleStop != "" {
		b.WriteString(p.SpindleStop + "\n")
	}
	b.WriteString(g.comment("Change tool: " + tool))
	if p.ToolChange != "" {
		b.WriteString(p.ToolChange + "\n")
	}
	if p.SpindleStart != "" {
		b.WriteString(fmt.Sprintf(p.SpindleStart+"\n", m.Speed))
	}
	b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, g.coord(m.ZSafe)))
	b.WriteString("\n")
}

func (g *Generator) writeFooter(b *strings.Builder, m *model.Mill) {
	p := g.profile

	b.WriteString(g.comment("=== Job complete ==="))
	for _, code := range p.EndCode {
		code = strings.ReplaceAll(code, "[SafeZ]", g.coord(m.ZChange))
		b.WriteString(code + "\n")
	}
}

// span is a stretch of a path, by distance from its start, cut at bridge
// height.
type span struct {
	from, to float64
}

// bridgeSpans spreads n bridges of width w evenly along path.
func bridgeSpans(path model.Toolpath, n int, w float64) []span {
	length := path.Length()
	if length <= 0 || n <= 0 {
		return nil
	}
	spacing := length / float64(n+1)
	if w > spacing {
		w = spacing
	}
	spans := make([]span, n)
	for i := range spans {
		c := spacing * float64(i+1)
		spans[i] = span{from: c - w/2, to: c + w/2}
	}
	return spans
}

// writeCut follows path at depth, lifting to the bridge height over spans.
func (g *Generator) writeCut(b *strings.Builder, path model.Toolpath, depth, feed float64, spans []span, c *model.Cutter) {
	p := g.profile
	feedSet := false
	lineTo := func(pt model.Point2D) {
		line := fmt.Sprintf("%s X%s Y%s", p.FeedMove,
			g.coord(pt.X-g.opts.Origin.X), g.coord(pt.Y-g.opts.Origin.Y))
		if !feedSet {
			line += " F" + g.format(g.feed(feed))
			feedSet = true
		}
		b.WriteString(line + "\n")
	}

	bridgeZ := depth
	if c != nil {
		bridgeZ = math.Max(depth, c.BridgesHeight)
	}
	type event struct {
		at    float64
		raise bool
	}
	var events []event
	if bridgeZ > depth {
		for _, s := range spans {
			events = append(events, event{s.from, true}, event{s.to, false})
		}
	}

	walked := 0.0
	next := 0
	for i := 1; i < len(path); i++ {
		a, e := path[i-1], path[i]
		seg := math.Hypot(e.X-a.X, e.Y-a.Y)
		for next < len(events) && events[next].at < walked+seg {
			t := (events[next].at - walked) / seg
			lineTo(model.Point2D{X: a.X + (e.X-a.X)*t, Y: a.Y + (e.Y-a.Y)*t})
			z := depth
			if events[next].raise {
				z = bridgeZ
			}
			b.WriteString(fmt.Sprintf("%s Z%s\n", p.FeedMove, g.coord(z)))
			next++
		}
		lineTo(e)
		walked += seg
	}
}

// stepDepths returns the cutting depths of a cutter, shallowest first.
func stepDepths(c *model.Cutter) []float64 {
	if !c.DoSteps || c.StepSize <= 0 || c.ZWork >= 0 {
		return []float64{c.ZWork}
	}
	n := int(math.Ceil(-c.ZWork/c.StepSize - 1e-9))
	depths := make([]float64, n)
	for i := range depths {
		depths[i] = math.Max(-c.StepSize*float64(i+1), c.ZWork)
	}
	depths[n-1] = c.ZWork
	return depths
}

func (g *Generator) toolDescription(t model.Tool) string {
	if dia := model.Diameter(t); dia > 0 {
		return fmt.Sprintf("%s%s end mill", g.coord(dia), g.unitName())
	}
	return "drill"
}

// comment wraps text in the profile's comment syntax.
func (g *Generator) comment(text string) string {
	return g.profile.CommentPrefix + " " + text + g.profile.CommentSuffix + "\n"
}

func (g *Generator) unitName() string {
	if g.profile.Metric() {
		return "mm"
	}
	return "in"
}

// coord converts a length in inches to output units and formats it.
func (g *Generator) coord(v float64) string {
	if g.profile.Metric() {
		v *= mmPerInch
	}
	return g.format(v)
}

// feed converts a feed in inches per minute to output units.
func (g *Generator) feed(v float64) float64 {
	if g.profile.Metric() {
		return v * mmPerInch
	}
	return v
}

// format formats a number according to the profile's decimal places.
func (g *Generator) format(v float64) string {
	s := fmt.Sprintf("%.*f", g.profile.DecimalPlaces, v)
	if s == "-"+fmt.Sprintf("%.*f", g.profile.DecimalPlaces, 0.0) {
		s = s[1:]
	}
	return s
}
