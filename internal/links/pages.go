package links

// Terminal pages for the redirect path. These are served to browsers, so
// they mirror the dark theme of the desktop app rather than a JSON body.

const notFoundPage = `<!DOCTYPE html>
<html>
<head>
  <title>Not Found</title>
  <style>
    body { font-family: system-ui; background: #000; color: #fff; display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
    .container { text-align: center; }
    h1 { color: #667eea; }
  </style>
</head>
<body>
  <div class="container">
    <h1>404</h1>
    <p>Link not found</p>
  </div>
</body>
</html>
`

const expiredPage = `<!DOCTYPE html>
<html>
<head>
  <title>Link Expired</title>
  <style>
    body { font-family: system-ui; background: #000; color: #fff; display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
    .container { text-align: center; }
    h1 { color: #f59e0b; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Link Expired</h1>
    <p>This link is no longer active</p>
  </div>
</body>
</html>
`
