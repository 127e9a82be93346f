// Package validate runs the validation tests of form nodes: the script
// test, the format (picture) test and the null test.
//
// Failed tests are reported through the host policy's message boxes
// according to each test's policy. A Warning can be accepted by the user,
// which marks the node user-interactive and silences later warnings on it.
// In batch mode null-test messages are collected and shown together by
// ShowNullTestMsg.
package validate
