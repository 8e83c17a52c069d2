// Package ftpclient implements the client side of the FTP control and data
// channels (RFC 959) for the operations a file session needs: login,
// TYPE, PASV or PORT data connections, STOR, RETR, NLST, MKD, RMD, DELE,
// PWD, NOOP and QUIT.
//
// # Basic Usage
//
//	client, err := ftpclient.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	if err := client.Login("username", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
//	names, err := client.NameList("/pub")
//
// # Transfers
//
// Store and Retrieve stream bytes unchanged over a fresh data connection.
// Call Type first to select ASCII ("A") or binary ("I"); line-ending
// translation for ASCII transfers is left to the caller.
//
// # Errors
//
// Unexpected server replies are returned as *ProtocolError:
//
//	if err := client.Delete("file.txt"); err != nil {
//	    var pe *ftpclient.ProtocolError
//	    if errors.As(err, &pe) && pe.Code == 550 {
//	        fmt.Println("no such file")
//	    }
//	}
package ftpclient
