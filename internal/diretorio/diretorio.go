// Package diretorio mantém o mapeamento de regiões para igrejas.
package diretorio

import (
	"errors"
	"strings"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
)

var (
	ErrUnknownRegion       = errors.New("região desconhecida")
	ErrChurchOutsideRegion = errors.New("igreja não pertence à região informada")
)

// Directory responde consultas sobre regiões e igrejas, preservando a ordem do catálogo.
type Directory struct {
	regions []config.Region
	index   map[string]regionEntry
}

type regionEntry struct {
	name     string
	churches map[string]string
}

// New constrói o diretório a partir do catálogo.
func New(regions []config.Region) *Directory {
	d := &Directory{index: make(map[string]regionEntry, len(regions))}
	for _, r := range regions {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		entry := regionEntry{name: name, churches: make(map[string]string, len(r.Churches))}
		churches := make([]string, 0, len(r.Churches))
		for _, c := range r.Churches {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			entry.churches[key(c)] = c
			churches = append(churches, c)
		}
		d.index[key(name)] = entry
		d.regions = append(d.regions, config.Region{Name: name, Churches: churches})
	}
	return d
}

// Regions devolve cópia das regiões na ordem original.
func (d *Directory) Regions() []config.Region {
	out := make([]config.Region, len(d.regions))
	for i, r := range d.regions {
		out[i] = config.Region{Name: r.Name, Churches: append([]string(nil), r.Churches...)}
	}
	return out
}

// Churches lista as igrejas da região.
func (d *Directory) Churches(region string) ([]string, bool) {
	entry, ok := d.index[key(region)]
	if !ok {
		return nil, false
	}
	for _, r := range d.regions {
		if r.Name == entry.name {
			return append([]string(nil), r.Churches...), true
		}
	}
	return nil, false
}

// Validate confere se a igreja pertence à região e devolve os nomes canônicos.
func (d *Directory) Validate(region, church string) (string, string, error) {
	entry, ok := d.index[key(region)]
	if !ok {
		return "", "", ErrUnknownRegion
	}
	canonical, ok := entry.churches[key(church)]
	if !ok {
		return "", "", ErrChurchOutsideRegion
	}
	return entry.name, canonical, nil
}

// CanonicalRegion normaliza o nome da região.
func (d *Directory) CanonicalRegion(region string) (string, bool) {
	entry, ok := d.index[key(region)]
	return entry.name, ok
}

func key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
