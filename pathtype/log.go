package pathtype

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "pathtype")
