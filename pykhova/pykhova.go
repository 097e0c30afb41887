// Package pykhova registers the "_khova" gpython module, exposing link parsing, homology computation
// and results catalogs to scripts.
package pykhova

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fine-structures/khova.SDK/khova"
	"github.com/fine-structures/khova.SDK/libkhova"
	"github.com/fine-structures/khova.SDK/libkhova/catalog"
	"github.com/fine-structures/khova.SDK/libkhova/link"
	"github.com/go-python/gpython/py"
)

var (
	LIB_VERSION = "v1.2026.1"
)

var (
	pyLinkType      = py.NewType("Link", "an immutable link diagram")
	pyHomologyType  = py.NewType("Homology", "the bigraded Khovanov homology of a link")
	pyCatalogType   = py.NewType("Catalog", "khova.Catalog")
	pyWorkspaceType = py.NewType("Workspace", "collects active session resources and catalogs")
)

const (
	READ_ONLY = 0x01

	kWorkspaceAttr = "_Workspace"
)

type pyLink struct {
	*link.Link
}

func (L pyLink) Type() *py.Type {
	return pyLinkType
}

func (L pyLink) M__str__() (py.Object, error) {
	writer := strings.Builder{}
	L.WriteAsString(&writer)
	return py.String(writer.String()), nil
}

func (L pyLink) M__repr__() (py.Object, error) {
	return py.String(L.Expr()), nil
}

// getLink accepts a Link object or a link expression string.
func getLink(obj py.Object) (*link.Link, error) {
	switch arg := obj.(type) {
	case pyLink:
		return arg.Link, nil
	case py.String:
		L, err := link.Parse("", string(arg))
		if err != nil {
			return nil, py.ExceptionNewf(py.ValueError, "%v", err)
		}
		return L, nil
	}
	return nil, py.ExceptionNewf(py.TypeError, "expected Link or str (got %v)", obj.Type().Name)
}

// Arg 1 (str): name
// Arg 2 (str): link expression, e.g. "[+1-2+3-1+2-3] +++" or "braid(3: 1 -2 1 -2)"
func py_NewLink(module py.Object, args py.Tuple) (py.Object, error) {
	var name, expr string
	err := py.LoadTuple(args, []interface{}{&name, &expr})
	if err != nil {
		return nil, err
	}
	L, err := link.Parse(name, expr)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return py.Object(pyLink{L}), nil
}

func py_Link_Name(self py.Object, args py.Tuple) (py.Object, error) {
	return py.String(self.(pyLink).Name()), nil
}

func py_Link_NumCrossings(self py.Object, args py.Tuple) (py.Object, error) {
	return py.Int(self.(pyLink).NumCrossings()), nil
}

func py_Link_NumComponents(self py.Object, args py.Tuple) (py.Object, error) {
	return py.Int(self.(pyLink).NumComponents()), nil
}

func py_Link_Code(self py.Object, args py.Tuple) (py.Object, error) {
	code := self.(pyLink).Code()
	tuple := make(py.Tuple, len(code))
	for i, c := range code {
		tuple[i] = py.Int(c)
	}
	return tuple, nil
}

func py_Link_Expr(self py.Object, args py.Tuple) (py.Object, error) {
	return py.String(self.(pyLink).Expr()), nil
}

type pyHomology struct {
	khova.Homology
}

func (H pyHomology) Type() *py.Type {
	return pyHomologyType
}

func (H pyHomology) M__str__() (py.Object, error) {
	writer := strings.Builder{}
	H.WriteAsString(&writer, khova.DefaultPrintOpts)
	return py.String(writer.String()), nil
}

func (H pyHomology) M__repr__() (py.Object, error) {
	return H.M__str__()
}

// Returns a tuple of (i, j, rank, (torsion...)) tuples, ordered by j and then i.
func py_Homology_Entries(self py.Object, args py.Tuple) (py.Object, error) {
	entries := self.(pyHomology).Entries()
	out := make(py.Tuple, len(entries))
	for k, e := range entries {
		torsion := make(py.Tuple, len(e.Torsion))
		for t, d := range e.Torsion {
			torsion[t] = py.Int(d)
		}
		out[k] = py.Tuple{py.Int(e.I), py.Int(e.J), py.Int(e.Rank), torsion}
	}
	return out, nil
}

func py_Homology_TotalRank(self py.Object, args py.Tuple) (py.Object, error) {
	return py.Int(self.(pyHomology).TotalRank()), nil
}

// Returns the graded Euler characteristic as a Laurent polynomial in q.
func py_Homology_Euler(self py.Object, args py.Tuple) (py.Object, error) {
	return py.String(khova.FormatLaurent(self.(pyHomology).Euler(), "q")), nil
}

// Arg 1 (Link or str): the link
// Arg 2 (Catalog, optional): results catalog consulted before and updated after computing
func py_Homology(module py.Object, args py.Tuple) (py.Object, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, py.ExceptionNewf(py.TypeError, "Homology() takes 1 or 2 arguments (%d given)", len(args))
	}
	L, err := getLink(args[0])
	if err != nil {
		return nil, err
	}

	opts := libkhova.Opts{}
	if len(args) > 1 && args[1] != py.None {
		cat, ok := args[1].(pyCatalog)
		if !ok {
			return nil, py.ExceptionNewf(py.TypeError, "expected Catalog (got %v)", args[1].Type().Name)
		}
		opts.Catalog = cat.Catalog
	}

	H, err := libkhova.Compute(context.Background(), L, opts)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.Object(pyHomology{H}), nil
}

type Workspace struct {
	CatalogCtx khova.CatalogContext
}

func (ws *Workspace) Close() {
	ws.CatalogCtx.Close()
	<-ws.CatalogCtx.Done()
}

func (ws *Workspace) Type() *py.Type {
	return pyWorkspaceType
}

func py_GetWorkspace(module py.Object, args py.Tuple) (py.Object, error) {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		ws := &Workspace{
			CatalogCtx: khova.NewCatalogContext(),
		}
		wsObj = ws
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj, nil
}

func py_Workspace_CatalogExists(self py.Object, args py.Tuple) (py.Object, error) {
	_ = self.(*Workspace)

	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(pathname)
	if os.IsNotExist(err) {
		return py.False, nil
	}
	return py.True, nil
}

// Arg 1 (str): db pathname ("" for an in-memory catalog)
// Arg 2 (int): flags (READ_ONLY)
func py_Workspace_OpenCatalog(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)

	var pathname string
	var flags int32
	err := py.LoadTuple(args, []interface{}{&pathname, &flags})
	if err != nil {
		return nil, err
	}

	opts := khova.CatalogOpts{
		ReadOnly:   (flags & READ_ONLY) != 0,
		DbPathName: pathname,
	}

	cat, err := catalog.OpenCatalog(ws.CatalogCtx, opts)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.Object(pyCatalog{cat}), nil
}

type pyCatalog struct {
	khova.Catalog
}

func (cat pyCatalog) Type() *py.Type {
	return pyCatalogType
}

func py_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if cat.Catalog != nil {
		cat.Close()
	}
	return py.None, nil
}

func py_Catalog_NumEntries(self py.Object, args py.Tuple) (py.Object, error) {
	return py.Int(self.(pyCatalog).NumEntries()), nil
}

var gOutCount = int32(0)

// Prints every catalog entry to stdout and returns the number printed.
func py_Catalog_Print(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	cat := self.(pyCatalog)

	opts := khova.DefaultPrintOpts
	py.LoadTuple(args, []interface{}{&opts.Label})
	if opts.Label == "" {
		py.LoadAttr(kwargs, "label", &opts.Label)
	}
	if opts.Label == "" {
		opts.Label = fmt.Sprintf("out[%d]", atomic.AddInt32(&gOutCount, 1))
	}
	py.LoadAttr(kwargs, "euler", &opts.Euler)

	onHit := make(chan khova.CatalogEntry)
	var selectErr error
	go func() {
		selectErr = cat.Select(onHit)
		close(onHit)
	}()

	count := 0
	for entry := range onHit {
		count++
		entryOpts := opts
		entryOpts.Label = fmt.Sprintf("%s %-12s", opts.Label, entry.Name)
		entry.Homology.WriteAsString(os.Stdout, entryOpts)
	}
	if selectErr != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", selectErr)
	}
	return py.Int(count), nil
}

// RunFile runs the python file at pathname, which may be absolute.
//
// gpython resolves a run path against its search paths and then CurDir, so the file is passed
// by base name with CurDir set to its directory.
func RunFile(ctx py.Context, pathname string, inModule interface{}) (*py.Module, error) {
	absPath, err := filepath.Abs(pathname)
	if err != nil {
		return nil, err
	}
	dir, base := filepath.Split(absPath)
	return py.RunFile(ctx, base, py.CompileOpts{CurDir: dir}, inModule)
}

func init() {

	/////////////////////////////////
	// Link
	{
		pyLinkType.Dict["Name"] = py.MustNewMethod("Name", py_Link_Name, 0, "")
		pyLinkType.Dict["NumCrossings"] = py.MustNewMethod("NumCrossings", py_Link_NumCrossings, 0, "")
		pyLinkType.Dict["NumComponents"] = py.MustNewMethod("NumComponents", py_Link_NumComponents, 0, "")
		pyLinkType.Dict["Code"] = py.MustNewMethod("Code", py_Link_Code, 0, "returns the link code as a tuple of ints")
		pyLinkType.Dict["Expr"] = py.MustNewMethod("Expr", py_Link_Expr, 0, "returns the link expression that rebuilds this Link")
	}

	/////////////////////////////////
	// Homology
	{
		pyHomologyType.Dict["Entries"] = py.MustNewMethod("Entries", py_Homology_Entries, 0, "returns (i, j, rank, torsion) tuples")
		pyHomologyType.Dict["TotalRank"] = py.MustNewMethod("TotalRank", py_Homology_TotalRank, 0, "")
		pyHomologyType.Dict["Euler"] = py.MustNewMethod("Euler", py_Homology_Euler, 0, "returns the graded Euler characteristic")
	}

	/////////////////////////////////
	// Catalog
	{
		pyCatalogType.Dict["NumEntries"] = py.MustNewMethod("NumEntries", py_Catalog_NumEntries, 0, "")
		pyCatalogType.Dict["Print"] = py.MustNewMethod("Print", py_Catalog_Print, 0, "prints each stored homology")
		pyCatalogType.Dict["Close"] = py.MustNewMethod("Close", py_Catalog_Close, 0, "")
	}

	/////////////////////////////////
	// Workspace
	{
		pyWorkspaceType.Dict["OpenCatalog"] = py.MustNewMethod("OpenCatalog", py_Workspace_OpenCatalog, 0, "")
		pyWorkspaceType.Dict["CatalogExists"] = py.MustNewMethod("CatalogExists", py_Workspace_CatalogExists, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("Link", py_NewLink, 0, ""),
			py.MustNewMethod("Homology", py_Homology, 0, ""),
			py.MustNewMethod("GetWorkspace", py_GetWorkspace, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION":   py.String(LIB_VERSION),
			"MAX_CROSSINGS": py.Int(khova.MaxCrossings),
			"READ_ONLY":     py.Int(READ_ONLY),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_khova",
				Doc:  "Khovanov homology gpython module",
			},
			Methods: methods,
			Globals: globals,
			OnContextClosed: func(m *py.Module) {
				wsObj, _ := py.GetAttrString(m, kWorkspaceAttr)
				if wsObj != nil {
					wsObj.(*Workspace).Close()
				}
			},
		})
	}
}
