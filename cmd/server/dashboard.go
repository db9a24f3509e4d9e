package main

import (
	"net/http"
)

func dashboardHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

// dashboardHTML polls /stats every two seconds. Ids in the stats come from
// request headers and paths, so cells are only ever set through textContent.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>cmdcooldown</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #1e1f22; color: #dbdee1; padding: 20px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 16px; margin-bottom: 24px; }
        .card { background: #2b2d31; border-radius: 8px; padding: 18px; }
        .label { font-size: 0.8em; text-transform: uppercase; color: #949ba4; }
        .value { font-size: 2em; font-weight: bold; margin-top: 6px; }
        .ok { color: #23a55a; } .cool { color: #f0b232; } .off { color: #f23f43; }
        table { width: 100%; border-collapse: collapse; background: #2b2d31; border-radius: 8px; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #3f4147; }
        th { color: #949ba4; font-size: 0.8em; text-transform: uppercase; }
    </style>
</head>
<body>
    <h1>Command cooldowns</h1>
    <div class="grid">
        <div class="card"><div class="label">Evaluations</div><div class="value" id="total">0</div></div>
        <div class="card"><div class="label">Allowed</div><div class="value ok" id="allowed">0</div></div>
        <div class="card"><div class="label">Cooldown hits</div><div class="value cool" id="cooldown">0</div></div>
        <div class="card"><div class="label">Disabled</div><div class="value off" id="blocked">0</div></div>
        <div class="card"><div class="label">Notices suppressed</div><div class="value" id="suppressed">0</div></div>
    </div>
    <table>
        <thead><tr><th>Guild</th><th>Command</th><th>User</th><th>Total</th><th>Allowed</th><th>Denied</th><th>Last seen</th></tr></thead>
        <tbody id="top"><tr><td colspan="7">Loading...</td></tr></tbody>
    </table>
    <script>
        async function refresh() {
            try {
                const data = await (await fetch('/stats')).json();
                for (const [id, key] of [['total', 'total_requests'], ['allowed', 'allowed_requests'],
                        ['cooldown', 'cooldown_hits'], ['blocked', 'blocked_requests'], ['suppressed', 'suppressed_notices']]) {
                    document.getElementById(id).textContent = data[key].toLocaleString();
                }
                const tbody = document.getElementById('top');
                tbody.replaceChildren();
                for (const c of data.top_clients || []) {
                    const tr = document.createElement('tr');
                    for (const v of [c.guild_id, c.command, c.user_id, c.total_requests, c.allowed_requests,
                            c.blocked_requests, new Date(c.last_request_at).toLocaleTimeString()]) {
                        const td = document.createElement('td');
                        td.textContent = String(v);
                        tr.appendChild(td);
                    }
                    tbody.appendChild(tr);
                }
                if (!tbody.hasChildNodes()) {
                    const td = document.createElement('td');
                    td.colSpan = 7;
                    td.textContent = 'No evaluations yet';
                    tbody.appendChild(document.createElement('tr')).appendChild(td);
                }
            } catch (err) {
                console.error('Failed to fetch stats:', err);
            }
        }
        refresh();
        setInterval(refresh, 2000);
    </script>
</body>
</html>`
