package pdf

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func newStream(t *testing.T, ctx *model.Context, content string, entries types.Dict) types.IndirectRef {
	t.Helper()
	sd, err := ctx.XRefTable.NewStreamDictForBuf([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range entries {
		sd.Insert(k, v)
	}
	ref, err := ctx.XRefTable.IndRefForNewObject(*sd)
	if err != nil {
		t.Fatal(err)
	}
	return *ref
}

func TestResolveXObject(t *testing.T) {
	ctx, err := pdfcpu.CreateContextWithXRefTable(nil, types.PaperSize["A4"])
	if err != nil {
		t.Fatalf("CreateContextWithXRefTable() error = %v", err)
	}

	identity := [6]float64{1, 0, 0, 1, 0, 0}
	resources := types.Dict{
		"XObject": types.Dict{
			"Fm1": newStream(t, ctx, "q /Im1 Do Q", types.Dict{
				"Subtype": types.Name("Form"),
				"Matrix":  types.Array{types.Integer(2), types.Integer(0), types.Integer(0), types.Integer(2), types.Float(10.5), types.Integer(-20)},
			}),
			"Fm2": newStream(t, ctx, "0 0 m", types.Dict{"Subtype": types.Name("Form")}),
			"Fm3": newStream(t, ctx, "", types.Dict{
				"Subtype": types.Name("Form"),
				"Matrix":  types.Array{types.Integer(1), types.Integer(0)},
			}),
			"Im1": newStream(t, ctx, "\x00\x00\x00", types.Dict{"Subtype": types.Name("Image")}),
			"Ps1": newStream(t, ctx, "", types.Dict{"Subtype": types.Name("PS")}),
		},
	}

	tests := []struct {
		name        string
		kind        XObjectKind
		matrix      [6]float64
		content     string
		hasResolver bool
	}{
		{"Fm1", XObjectForm, [6]float64{2, 0, 0, 2, 10.5, -20}, "q /Im1 Do Q", true},
		{"Fm2", XObjectForm, identity, "0 0 m", true},
		{"Fm3", XObjectForm, identity, "", true},
		{"Im1", XObjectImage, identity, "", false},
		{"Ps1", XObjectOther, identity, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, err := resolveXObject(ctx, resources, tt.name)
			if err != nil {
				t.Fatalf("resolveXObject() error = %v", err)
			}
			if x.Name != tt.name || x.Kind != tt.kind {
				t.Errorf("got %s kind %v, want %s kind %v", x.Name, x.Kind, tt.name, tt.kind)
			}
			if diff := cmp.Diff(tt.matrix, x.Matrix); diff != "" {
				t.Errorf("matrix mismatch (-want +got):\n%s", diff)
			}
			if string(x.Content) != tt.content {
				t.Errorf("content = %q, want %q", x.Content, tt.content)
			}
			if (x.Resources != nil) != tt.hasResolver {
				t.Errorf("resources set = %v, want %v", x.Resources != nil, tt.hasResolver)
			}
		})
	}

	// Forms without their own resources resolve against the parent's
	fm1, _ := resolveXObject(ctx, resources, "Fm1")
	nested, err := fm1.Resources.XObject("Im1")
	if err != nil || nested.Kind != XObjectImage {
		t.Errorf("nested Im1 = %+v, %v", nested, err)
	}

	for _, tc := range []struct {
		name      string
		resources types.Dict
	}{
		{"Missing", resources},
		{"Im1", nil},
		{"Im1", types.Dict{}},
	} {
		if _, err := resolveXObject(ctx, tc.resources, tc.name); !errors.Is(err, ErrNoXObject) {
			t.Errorf("resolveXObject(%s, %v) error = %v, want ErrNoXObject", tc.name, tc.resources, err)
		}
	}
}

func TestNumberValue(t *testing.T) {
	tests := []struct {
		in   types.Object
		want float64
	}{
		{types.Integer(3), 3},
		{types.Float(-1.25), -1.25},
		{types.Name("x"), 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := numberValue(tt.in); got != tt.want {
			t.Errorf("numberValue(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
