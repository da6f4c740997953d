package vshell

import "errors"

var errSyntaxMissingRedirectFile = errors.New("SyntaxError: missing file for redirection")
