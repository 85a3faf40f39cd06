// Package importer loads glTF scenes into meshes ready for the accelerator
// builder. Geometry is pre-transformed into world space.
package importer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/pkg/accel"
)

// Import errors.
var (
	ErrNoScene         = errors.New("glTF document has no scene")
	ErrSceneIndex      = errors.New("glTF scene index out of range")
	ErrNodeIndex       = errors.New("glTF node index out of range")
	ErrAccessorIndex   = errors.New("glTF accessor index out of range")
	ErrMissingPosition = errors.New("glTF primitive has no POSITION attribute")
)

// Options controls scene import.
type Options struct {
	// Scene selects a scene by index; negative uses the document default.
	Scene int
	// ApplyTransforms bakes node world matrices into the vertices.
	ApplyTransforms bool
	Logger          *zap.Logger
}

// DefaultOptions returns the import settings used by the baker.
func DefaultOptions() Options {
	return Options{Scene: -1, ApplyTransforms: true}
}

// defaultNormal is used for primitives without a NORMAL attribute.
var defaultNormal = mgl32.Vec3{1, 0, 0}

// Load opens a .gltf or .glb file and converts its scene.
func Load(path string, opts Options) ([]accel.Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return FromDocument(doc, opts)
}

// FromDocument converts every triangle primitive reachable from the selected
// scene into a mesh, in node traversal order.
func FromDocument(doc *gltf.Document, opts Options) ([]accel.Mesh, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	roots, err := sceneRoots(doc, opts.Scene)
	if err != nil {
		return nil, err
	}

	imp := &sceneImporter{
		doc:     doc,
		opts:    opts,
		log:     log,
		visited: make(map[int]bool),
	}
	for _, root := range roots {
		if err := imp.walk(root, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}

	log.Info("scene imported",
		zap.Int("nodes", len(imp.visited)),
		zap.Int("meshes", len(imp.meshes)))
	return imp.meshes, nil
}

type sceneImporter struct {
	doc     *gltf.Document
	opts    Options
	log     *zap.Logger
	visited map[int]bool
	meshes  []accel.Mesh
}

func (imp *sceneImporter) walk(nodeIdx int, parent mgl32.Mat4) error {
	if nodeIdx < 0 || nodeIdx >= len(imp.doc.Nodes) {
		return fmt.Errorf("%w: %d", ErrNodeIndex, nodeIdx)
	}
	if imp.visited[nodeIdx] {
		imp.log.Warn("node reached twice, skipping", zap.Int("node", nodeIdx))
		return nil
	}
	imp.visited[nodeIdx] = true

	node := imp.doc.Nodes[nodeIdx]
	world := parent.Mul4(localMatrix(node))

	if node.Mesh != nil {
		if *node.Mesh < 0 || *node.Mesh >= len(imp.doc.Meshes) {
			return fmt.Errorf("node %d: mesh %d out of range", nodeIdx, *node.Mesh)
		}
		transform := mgl32.Ident4()
		if imp.opts.ApplyTransforms {
			transform = world
		}
		if err := imp.addMesh(node, imp.doc.Meshes[*node.Mesh], transform); err != nil {
			return fmt.Errorf("node %d (%q): %w", nodeIdx, node.Name, err)
		}
	}

	for _, child := range node.Children {
		if err := imp.walk(child, world); err != nil {
			return err
		}
	}
	return nil
}

func (imp *sceneImporter) addMesh(node *gltf.Node, mesh *gltf.Mesh, world mgl32.Mat4) error {
	name := mesh.Name
	if name == "" {
		name = node.Name
	}

	for pi, prim := range mesh.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			imp.log.Warn("skipping non-triangle primitive",
				zap.String("mesh", name), zap.Int("primitive", pi))
			continue
		}
		m, err := imp.readPrimitive(prim, world)
		if err != nil {
			return fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
		}
		m.Name = fmt.Sprintf("%s/%d", name, pi)
		imp.meshes = append(imp.meshes, m)
	}
	return nil
}

func (imp *sceneImporter) readPrimitive(prim *gltf.Primitive, world mgl32.Mat4) (accel.Mesh, error) {
	var m accel.Mesh

	posAcr, err := imp.accessor(prim.Attributes, gltf.POSITION)
	if err != nil {
		return m, err
	}
	if posAcr == nil {
		return m, ErrMissingPosition
	}
	positions, err := modeler.ReadPosition(imp.doc, posAcr, nil)
	if err != nil {
		return m, fmt.Errorf("reading positions: %w", err)
	}
	n := len(positions)

	m.Positions = make([]mgl32.Vec3, n)
	for i, p := range positions {
		m.Positions[i] = mgl32.TransformCoordinate(mgl32.Vec3(p), world)
	}

	m.Normals = make([]mgl32.Vec3, n)
	nrmAcr, err := imp.accessor(prim.Attributes, gltf.NORMAL)
	if err != nil {
		return m, err
	}
	if nrmAcr != nil {
		normals, err := modeler.ReadNormal(imp.doc, nrmAcr, nil)
		if err != nil {
			return m, fmt.Errorf("reading normals: %w", err)
		}
		if len(normals) != n {
			return m, fmt.Errorf("%w: %d normals for %d positions", accel.ErrAttributeMismatch, len(normals), n)
		}
		normalMat := world.Mat3().Inv().Transpose()
		for i, v := range normals {
			m.Normals[i] = transformNormal(normalMat, mgl32.Vec3(v))
		}
	} else {
		for i := range m.Normals {
			m.Normals[i] = defaultNormal
		}
	}

	if m.UV0, err = imp.readUV(prim.Attributes, gltf.TEXCOORD_0, n); err != nil {
		return m, err
	}
	if m.UV0 == nil {
		m.UV0 = make([]mgl32.Vec2, n)
	}
	if m.UV1, err = imp.readUV(prim.Attributes, gltf.TEXCOORD_1, n); err != nil {
		return m, err
	}
	if m.UV1 == nil {
		imp.log.Warn("primitive has no atlas UVs, using TEXCOORD_0", zap.Int("vertices", n))
		m.UV1 = append([]mgl32.Vec2(nil), m.UV0...)
	}

	if err := imp.readIndices(prim, n, &m); err != nil {
		return m, err
	}
	return m, nil
}

func (imp *sceneImporter) readUV(attrs map[string]int, name string, n int) ([]mgl32.Vec2, error) {
	acr, err := imp.accessor(attrs, name)
	if err != nil || acr == nil {
		return nil, err
	}
	uvs, err := modeler.ReadTextureCoord(imp.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(uvs) != n {
		return nil, fmt.Errorf("%w: %d %s for %d positions", accel.ErrAttributeMismatch, len(uvs), name, n)
	}
	out := make([]mgl32.Vec2, n)
	for i, uv := range uvs {
		out[i] = mgl32.Vec2(uv)
	}
	return out, nil
}

func (imp *sceneImporter) readIndices(prim *gltf.Primitive, vertexCount int, m *accel.Mesh) error {
	if prim.Indices == nil {
		m.IndexWidth = accel.IndexWidth32
		m.Indices32 = make([]uint32, vertexCount)
		for i := range m.Indices32 {
			m.Indices32[i] = uint32(i)
		}
		return nil
	}

	if *prim.Indices < 0 || *prim.Indices >= len(imp.doc.Accessors) {
		return fmt.Errorf("%w: indices %d", ErrAccessorIndex, *prim.Indices)
	}
	acr := imp.doc.Accessors[*prim.Indices]
	indices, err := modeler.ReadIndices(imp.doc, acr, nil)
	if err != nil {
		return fmt.Errorf("reading indices: %w", err)
	}

	switch acr.ComponentType {
	case gltf.ComponentUbyte, gltf.ComponentUshort:
		m.IndexWidth = accel.IndexWidth16
		m.Indices16 = make([]uint16, len(indices))
		for i, idx := range indices {
			m.Indices16[i] = uint16(idx)
		}
	default:
		m.IndexWidth = accel.IndexWidth32
		m.Indices32 = indices
	}
	return nil
}

// accessor returns the accessor bound to an attribute, or nil when the
// attribute is absent.
func (imp *sceneImporter) accessor(attrs map[string]int, name string) (*gltf.Accessor, error) {
	idx, ok := attrs[name]
	if !ok {
		return nil, nil
	}
	if idx < 0 || idx >= len(imp.doc.Accessors) {
		return nil, fmt.Errorf("%w: %s accessor %d", ErrAccessorIndex, name, idx)
	}
	return imp.doc.Accessors[idx], nil
}

// sceneRoots returns the root nodes to traverse. Documents without scenes
// fall back to every node that is nobody's child.
func sceneRoots(doc *gltf.Document, scene int) ([]int, error) {
	if scene < 0 && doc.Scene != nil {
		scene = *doc.Scene
	}
	if scene >= 0 {
		if scene >= len(doc.Scenes) {
			return nil, fmt.Errorf("%w: %d of %d", ErrSceneIndex, scene, len(doc.Scenes))
		}
		return doc.Scenes[scene].Nodes, nil
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes, nil
	}
	if len(doc.Nodes) == 0 {
		return nil, ErrNoScene
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, node := range doc.Nodes {
		for _, c := range node.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots, nil
}
