// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/insolar/crowdfund/configuration"
)

var dir = flag.String("dir", ".", "directory to write config files to")

func main() {
	flag.Parse()
	for fileName, cfg := range configuration.Configurations() {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			logrus.Fatal(errors.Wrapf(err, "failed to marshal %s", fileName))
		}
		filePath := filepath.Join(*dir, fileName)
		if err := ioutil.WriteFile(filePath, out, 0644); err != nil {
			logrus.Fatal(errors.Wrapf(err, "failed to write config file"))
		}
		fmt.Println(filePath)
	}
}
