package skim

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "skim")
