package main

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/modules"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type category struct {
	Name    string
	Modules []*modsynth.Module
}

// categories groups the palette by category, keeping the palette order.
func categories() []category {
	var ret []category
	index := map[modsynth.Category]int{}
	for _, m := range modules.Palette() {
		i, ok := index[m.Category]
		if !ok {
			i = len(ret)
			index[m.Category] = i
			ret = append(ret, category{Name: m.Category.String()})
		}
		ret[i].Modules = append(ret[i].Modules, m)
	}
	return ret
}

func printPalette(w io.Writer, text string) error {
	caser := cases.Title(language.English)
	funcs := sprig.TxtFuncMap()
	funcs["heading"] = func(s string) string { return caser.String(s) + "s" }
	t, err := template.New("list").Funcs(funcs).Parse(text)
	if err != nil {
		return fmt.Errorf("invalid list template: %w", err)
	}
	return t.Execute(w, categories())
}

func printDevices(w io.Writer, d modsynth.Devices) error {
	audio, err := d.AudioInputs()
	if err != nil {
		return err
	}
	midi, err := d.MIDIInputs()
	if err != nil {
		return err
	}
	for _, group := range []struct {
		title   string
		devices []modsynth.DeviceInfo
	}{{"Audio inputs", audio}, {"MIDI inputs", midi}} {
		fmt.Fprintf(w, "%s:\n", group.title)
		if len(group.devices) == 0 {
			fmt.Fprintln(w, "  (none)")
		}
		for _, info := range group.devices {
			fmt.Fprintf(w, "  %s\n", info.Name)
		}
	}
	return nil
}
