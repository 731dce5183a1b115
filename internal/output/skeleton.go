package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/panbanda/jcohesion/pkg/models"
)

// SkeletonView renders the structural model of a run.
type SkeletonView struct {
	Skeleton *models.Skeleton
}

// NewSkeletonView creates a view over a skeleton.
func NewSkeletonView(sk *models.Skeleton) *SkeletonView {
	return &SkeletonView{Skeleton: sk}
}

func (v *SkeletonView) sections() []Section {
	var out []Section
	for _, p := range v.Skeleton.Packages {
		name := p.Name
		if name == "" {
			name = "(default package)"
		}
		pkg := Section{Title: name}
		for i := range p.Classes {
			pkg.Sections = append(pkg.Sections, classSection(&p.Classes[i]))
		}
		out = append(out, pkg)
	}
	return out
}

func classSection(c *models.ClassModel) Section {
	var b strings.Builder
	for _, a := range c.Attributes {
		mods := modifiers(a.Public, a.Static, a.Final)
		fmt.Fprintf(&b, "  attr %s%s %s\n", mods, a.Type, a.Name)
	}
	for i := range c.Methods {
		m := &c.Methods[i]
		kind := "method"
		if m.Ctor {
			kind = "ctor"
		}
		fmt.Fprintf(&b, "  %s %s %s(%s)%s\n", kind, m.Visibility, m.Name,
			strings.Join(m.Args, ", "), methodFlags(m))
		for _, op := range m.Ops {
			if len(op.Args) > 0 {
				fmt.Fprintf(&b, "    %s %s(%s)\n", op.Kind, op.Target, strings.Join(op.Args, ", "))
			} else {
				fmt.Fprintf(&b, "    %s %s\n", op.Kind, op.Target)
			}
		}
	}
	return Section{Title: c.ID, Content: strings.TrimRight(b.String(), "\n")}
}

func modifiers(public, static, final bool) string {
	var mods []string
	if public {
		mods = append(mods, "public")
	}
	if static {
		mods = append(mods, "static")
	}
	if final {
		mods = append(mods, "final")
	}
	if len(mods) == 0 {
		return ""
	}
	return strings.Join(mods, " ") + " "
}

func methodFlags(m *models.Method) string {
	var flags []string
	if m.Static {
		flags = append(flags, "static")
	}
	if m.Abstract {
		flags = append(flags, "abstract")
	}
	if m.Bridge {
		flags = append(flags, "bridge")
	}
	if len(flags) == 0 {
		return ""
	}
	return " [" + strings.Join(flags, ",") + "]"
}

func (v *SkeletonView) RenderText(w io.Writer, colored bool) error {
	r := &Report{Title: fmt.Sprintf("Skeleton (%d classes)", v.Skeleton.Len())}
	for _, s := range v.sections() {
		r.Sections = append(r.Sections, &s)
	}
	return r.RenderText(w, colored)
}

func (v *SkeletonView) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# Skeleton (%d classes)\n\n", v.Skeleton.Len())
	for _, s := range v.sections() {
		if err := s.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

func (v *SkeletonView) RenderData() any {
	return v.Skeleton
}
