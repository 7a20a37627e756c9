package provider

import (
	"path"
	"strings"

	"mxc/common"
	"mxc/depm"
)

// bundleClassSuffix ends the class name of every compiled resource bundle.
const bundleClassSuffix = "_properties"

// BundleClassName returns the local class name a resource bundle compiles to
// for a locale: `<bundle>_<locale>_properties`.
func BundleClassName(bundle, locale string) string {
	return bundle + "_" + locale + bundleClassSuffix
}

// ResourceBundlePath is the provider of resource bundles.  Each root holds one
// directory per locale, and each locale directory holds `.properties` files
// laid out by package.  The source of bundle `strings` for locale `en_US` is
// found at `<root>/en_US/strings.properties` and defines the class
// `strings_en_US_properties`.
type ResourceBundlePath struct {
	fsys    FileSystem
	roots   []string
	locales []string
	cache   *sourceCache
}

// NewResourceBundlePath creates a new resource bundle path.
func NewResourceBundlePath(fsys FileSystem, locales []string, roots ...string) *ResourceBundlePath {
	return &ResourceBundlePath{fsys: fsys, roots: roots, locales: locales, cache: newSourceCache()}
}

func (rbp *ResourceBundlePath) Name() string {
	return "resource bundle path"
}

// Locales returns the locales bundles are provided for.
func (rbp *ResourceBundlePath) Locales() []string {
	return rbp.locales
}

func (rbp *ResourceBundlePath) FindSource(q depm.QName) (*depm.Source, error) {
	if !strings.HasSuffix(q.Local, bundleClassSuffix) {
		return nil, nil
	}

	for _, locale := range rbp.locales {
		suffix := "_" + locale + bundleClassSuffix
		if !strings.HasSuffix(q.Local, suffix) {
			continue
		}

		bundle := strings.TrimSuffix(q.Local, suffix)
		if bundle == "" {
			continue
		}

		bundleQName := depm.NewQName(q.Namespace, bundle)
		for _, root := range rbp.roots {
			p := path.Join(root, locale, bundleQName.Path()+common.PropertiesFileExt)
			if s := rbp.source(p, q); s != nil {
				return s, nil
			}
		}
	}

	return nil, nil
}

// FindBundle returns the source of a bundle for every locale it exists in.
func (rbp *ResourceBundlePath) FindBundle(bundle depm.QName) []*depm.Source {
	var srcs []*depm.Source
	for _, locale := range rbp.locales {
		q := depm.NewQName(bundle.Namespace, BundleClassName(bundle.Local, locale))
		if s, _ := rbp.FindSource(q); s != nil {
			srcs = append(srcs, s)
		}
	}

	return srcs
}

func (rbp *ResourceBundlePath) Sources() []*depm.Source {
	return rbp.cache.handedOut()
}

func (rbp *ResourceBundlePath) source(p string, q depm.QName) *depm.Source {
	return rbp.cache.lookup(p, func() *depm.Source {
		f := rbp.fsys.File(p)
		if !f.Exists() {
			return nil
		}

		return depm.NewSource(f, q.Path(), q.Local, rbp, false, false)
	})
}

func (rbp *ResourceBundlePath) Replace(s *depm.Source) {
	rbp.cache.replace(s.Name(), s)
}

func (rbp *ResourceBundlePath) BeginBatch() {
	rbp.cache.beginBatch()
}
