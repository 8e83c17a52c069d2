// Package myftp provides Session, a small stateful wrapper around an FTP
// connection: connect and log in, upload, download, list names, create and
// remove directories, delete files, and close.
//
// # Overview
//
// A Session is built from a Config and does no network I/O until Connect:
//
//	sess, err := myftp.New(myftp.Config{
//	    Hostname: "ftp.example.com",
//	    Username: "user",
//	    Password: "secret",
//	})
//	if err != nil {
//	    log.Fatal(err) // *myftp.ConfigurationError
//	}
//
//	if err := sess.Connect(); err != nil {
//	    log.Fatal(err) // *myftp.ConnectionError
//	}
//	defer sess.Close()
//
// Hostname defaults to "localhost", Port to 21 and passive mode to on.
//
// # Transfers
//
// Upload and Download take a TransferMode. Auto picks ASCII for the
// extensions txt, csv, tsv, js, html and css (compared case-sensitively)
// and Binary for everything else:
//
//	err := sess.Upload("report.csv", "/in/report.csv", myftp.Auto) // ASCII
//	err = sess.Download("/out/photo.png", "photo.png", myftp.Auto) // Binary
//
// ASCII transfers send CRLF line endings and store LF locally. Binary
// transfers are byte for byte.
//
// # Transports
//
// The FTP conversation itself is delegated to a Conn obtained from a Dialer.
// The default NativeDialer uses package ftpclient; the jlftp package adapts
// github.com/jlaffaye/ftp. Tests can inject their own Dialer with WithDialer.
//
// # Errors
//
// Every failure is reported synchronously by the call that caused it and
// nothing is retried:
//
//   - *ConfigurationError: a required setting is missing or invalid
//   - *ConnectionError: the server is unreachable or rejected the login
//   - *OperationError: a file or directory operation failed, including
//     calls made before Connect (ErrNotLoggedIn) or after Close (ErrClosed)
//
// # Concurrency
//
// A Session owns exactly one control connection and FTP allows a single
// outstanding command on it, so a Session must not be used from several
// goroutines at once. Use one Session per concurrent transfer.
package myftp
