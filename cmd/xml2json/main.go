package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/visualtk/vnintegration/internal/xmljson"
)

// Converts a stored XML response to JSON or YAML, or a JSON file back to XML.
func main() {
	flags := pflag.NewFlagSet("xml2json", pflag.ExitOnError)
	in := flags.String("in", "response_getrepertoire.xml", "input file")
	out := flags.String("out", "", "output file, defaults to the input with the extension of the format")
	format := flags.String("format", "json", "output format (json, yaml, xml)")
	arrays := flags.StringSlice("arrays", nil, "element names or root paths (synchronize/element) always decoded as arrays")
	_ = flags.Parse(os.Args[1:])

	f, err := xmljson.ParseFormat(*format)
	if err != nil {
		log.WithError(err).Fatal("Invalid format")
	}
	data, err := ioutil.ReadFile(*in)
	if err != nil {
		log.WithError(err).Fatal("Error reading input file")
	}

	var value interface{}
	if strings.EqualFold(filepath.Ext(*in), ".json") {
		if err = json.Unmarshal(data, &value); err != nil {
			log.WithError(err).Fatal("Error parsing JSON")
		}
	} else if value, err = xmljson.Decode(data, xmljson.WithArrays(*arrays...)); err != nil {
		log.WithError(err).Fatal("Error parsing XML")
	}

	var converted []byte
	if f == xmljson.FormatXML {
		converted, err = xmljson.Encode(value)
	} else {
		converted, err = f.Marshal(value)
	}
	if err != nil {
		log.WithError(err).Fatal("Error converting")
	}

	target := *out
	if target == "" {
		target = strings.TrimSuffix(*in, filepath.Ext(*in)) + "." + f.Ext()
	}
	if target == *in {
		log.WithField("file", target).Fatal("Refusing to overwrite the input file")
	}
	if err = ioutil.WriteFile(target, converted, 0644); err != nil {
		log.WithError(err).Fatal("Error writing output file")
	}
	fmt.Printf("Successfully converted %s to %s\n", *in, target)
}
